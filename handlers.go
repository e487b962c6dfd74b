package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func newHandler(h *hub, cfg *config, log *logrus.Logger) http.Handler {
	upgrader := newUpgrader(cfg.Origin)
	handler := mux.NewRouter()

	// Route websocket requests
	ws := handler.NewRoute().HeadersRegexp("Connection", "(?i)upgrade", "Upgrade", "(?i)websocket").Subrouter()
	ws.Handle("/control", controlHandler{h: h, upgrader: upgrader})
	ws.Handle("/rooms/{name}", roomHandler{
		h:        h,
		upgrader: upgrader,
		host:     cfg.AdvertiseHost,
		log:      log.WithField("component", "http"),
	})

	// Route other GET requests
	handler.Methods("GET").Path("/rooms").Handler(roomsHandler{h: h})
	handler.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	handler.Methods("GET").Path("/metrics.json").HandlerFunc(metricsJSONHandler)

	return handler
}

func newUpgrader(origin string) *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if origin != "" {
		u.CheckOrigin = func(r *http.Request) bool {
			return r.Header.Get("Origin") == origin
		}
	}
	return u
}

type controlHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
}

func (ch controlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := ch.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	serveControl(ws, ch.h)
}

type roomHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
	host     string
	log      *logrus.Entry
}

// ServeHTTP joins the named room on the client's behalf and bridges the
// websocket to the room's endpoint.
func (rh roomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	rep, ok := rh.h.request([]byte("JOIN " + name))
	if !ok {
		http.Error(w, "Error: service is shutting down.", http.StatusServiceUnavailable)
		return
	}
	switch rep.Status {
	case StatusSuccess:
	case StatusNotExists:
		http.Error(w, fmt.Sprintf("Error: no room named %q.", name), http.StatusNotFound)
		return
	case StatusInvalid:
		sendBadRequestError(w, "Invalid room name.")
		return
	default:
		http.Error(w, "Error: join failed.", http.StatusInternalServerError)
		return
	}

	conn, err := dialRoom(net.JoinHostPort(rh.host, strconv.Itoa(rep.Port)))
	if err != nil {
		rh.log.WithError(err).WithField("room", name).Error("cannot reach room")
		http.Error(w, "Error: room unreachable.", http.StatusBadGateway)
		return
	}
	ws, err := rh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		conn.Close()
		return
	}
	b := &bridge{ws: ws, room: conn, log: rh.log.WithField("room", name)}
	b.run()
}

type roomsHandler struct {
	h *hub
}

func (rh roomsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rooms, ok := rh.h.rooms()
	if !ok {
		http.Error(w, "Error: service is shutting down.", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

func metricsJSONHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	m.writeJSON(w)
}

func sendBadRequestError(w http.ResponseWriter, str string) {
	http.Error(w,
		fmt.Sprintf("Error: bad request. %s", str),
		http.StatusBadRequest)
}
