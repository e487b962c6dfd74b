package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

type config struct {
	ControlAddr   string
	RoomHost      string
	RoomBasePort  int
	AdvertiseHost string
	AdminAddr     string
	Origin        string
	StopTimeout   time.Duration
	KillTimeout   time.Duration
	StatsTick     time.Duration
	LogLevel      string
	LogFormat     string
}

func newConfig() *config {
	return &config{
		ControlAddr:   ":8080",
		RoomHost:      "",
		RoomBasePort:  1876,
		AdvertiseHost: "127.0.0.1",
		AdminAddr:     "127.0.0.1:8081",
		StopTimeout:   10 * time.Second,
		KillTimeout:   1 * time.Second,
		StatsTick:     10 * time.Second,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// registerFlags binds every setting to a flag whose default comes from the
// environment when set there.
func (c *config) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ControlAddr, "control", envString("CHATRELAY_CONTROL_ADDR", c.ControlAddr), "control service address")
	fs.StringVar(&c.RoomHost, "room-host", envString("CHATRELAY_ROOM_HOST", c.RoomHost), "host rooms listen on (empty for all interfaces)")
	fs.IntVar(&c.RoomBasePort, "room-base-port", envInt("CHATRELAY_ROOM_BASE_PORT", c.RoomBasePort), "port of the first room")
	fs.StringVar(&c.AdvertiseHost, "advertise-host", envString("CHATRELAY_ADVERTISE_HOST", c.AdvertiseHost), "host the websocket bridge dials rooms on")
	fs.StringVar(&c.AdminAddr, "addr", envString("CHATRELAY_ADMIN_ADDR", c.AdminAddr), "http service address")
	fs.StringVar(&c.Origin, "origin", envString("CHATRELAY_ORIGIN", c.Origin), "websocket server checks Origin headers against this scheme://host[:port]")
	fs.DurationVar(&c.StopTimeout, "stop-timeout", c.StopTimeout, "stop timeout")
	fs.DurationVar(&c.KillTimeout, "kill-timeout", c.KillTimeout, "kill timeout")
	fs.DurationVar(&c.StatsTick, "stats-tick", envDuration("CHATRELAY_STATS_TICK", c.StatsTick), "duration between room member gauge updates")
	fs.StringVar(&c.LogLevel, "log-level", envString("CHATRELAY_LOG_LEVEL", c.LogLevel), "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", envString("CHATRELAY_LOG_FORMAT", c.LogFormat), "log format: text or json")
}

func (c *config) validate() error {
	if c.ControlAddr == "" {
		return errors.New("config: control address is required")
	}
	if c.RoomBasePort < 1 || c.RoomBasePort > 65535 {
		return fmt.Errorf("config: room base port %d out of range 1-65535", c.RoomBasePort)
	}
	if c.StatsTick <= 0 {
		return fmt.Errorf("config: stats tick must be positive, got %s", c.StatsTick)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
