package main

import (
	"flag"
	"net/http"

	"github.com/facebookgo/httpdown"
	"github.com/joho/godotenv"
)

func main() {
	// Local .env overrides nothing already set in the environment.
	_ = godotenv.Load()

	cfg := newConfig()
	cfg.registerFlags(flag.CommandLine)
	flag.Parse()

	log := newLogger(cfg)
	if err := cfg.validate(); err != nil {
		log.WithError(err).Fatal("bad configuration")
	}

	startMetrics()
	defer finalMetrics()

	h := newHub(cfg, log)
	go h.run()

	ctl, err := listenControl(cfg.ControlAddr, h, log)
	if err != nil {
		log.WithError(err).Fatal("cannot listen for control connections")
	}
	log.WithField("addr", ctl.addr().String()).Info("chat service master server listening")
	log.Info("usage: CREATE <name> | DELETE <name> | JOIN <name> | LIST")
	go func() {
		if err := ctl.serve(); err != nil {
			log.WithError(err).Error("control listener stopped")
		}
	}()

	// Prepare the stoppable HTTP server
	server := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: newHandler(h, cfg, log),
	}
	hd := &httpdown.HTTP{
		StopTimeout: cfg.StopTimeout,
		KillTimeout: cfg.KillTimeout,
	}

	// Serves until SIGTERM or SIGINT.
	log.WithField("addr", cfg.AdminAddr).Info("admin server listening")
	if err := httpdown.ListenAndServe(server, hd); err != nil {
		log.WithError(err).Error("admin server stopped")
	}

	ctl.close()
	h.shutdown()
	log.Info("shutdown complete")
}
