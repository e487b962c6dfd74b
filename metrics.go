package main

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gometrics "github.com/rcrowley/go-metrics"
)

type metrics struct {
	log  io.Writer
	reg  gometrics.Registry
	tick time.Duration
}

var m *metrics

var (
	promCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_commands_total",
		Help: "Control commands processed, by command and reply status.",
	}, []string{"command", "status"})

	promRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_rooms",
		Help: "Rooms with a running broadcast worker.",
	})

	promMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_room_members",
		Help: "Member connections across all rooms.",
	})

	promRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_relayed_chunks_total",
		Help: "Chunks written to room members.",
	})
)

func init() {
	m = &metrics{
		log:  os.Stderr,
		reg:  gometrics.DefaultRegistry,
		tick: time.Duration(60) * time.Second,
	}
	flag.DurationVar(&m.tick, "metrics.tick", m.tick, "metrics: duration between reports")
}

func startMetrics() {
	if !flag.Parsed() {
		flag.Parse()
	}
	m.start()
}

func finalMetrics() {
	m.writeOnce()
}

func incr(name string, i int64) {
	m.incr(name, i)
}

func decr(name string, i int64) {
	m.decr(name, i)
}

func mark(name string, i int64) {
	m.mark(name, i)
}

// observeCommand records one dispatched control command.
func observeCommand(o op, s Status) {
	m.incr("commands."+s.String(), 1)
	promCommands.WithLabelValues(o.String(), s.String()).Inc()
}

func roomStarted() {
	m.incr("rooms", 1)
	promRooms.Inc()
}

func roomStopped() {
	m.decr("rooms", 1)
	promRooms.Dec()
}

func memberJoined() {
	m.incr("members", 1)
	promMembers.Inc()
}

func memberLeft() {
	m.decr("members", 1)
	promMembers.Dec()
}

func chunkRelayed() {
	m.mark("relay.chunks", 1)
	promRelayed.Inc()
}

// roomGauge publishes a room's live member count.
func roomGauge(room string, n int) {
	gometrics.GetOrRegisterGauge("room."+room+".members", m.reg).Update(int64(n))
}

func dropRoomGauge(room string) {
	m.reg.Unregister("room." + room + ".members")
}

func (m metrics) start() {
	go gometrics.WriteJSON(m.reg, m.tick, m.log)
}

func (m metrics) writeOnce() {
	gometrics.WriteJSONOnce(m.reg, m.log)
}

func (m metrics) writeJSON(w io.Writer) {
	gometrics.WriteJSONOnce(m.reg, w)
}

func (m metrics) incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

func (m metrics) decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Dec(i)
}

func (m metrics) mark(name string, i int64) {
	gometrics.GetOrRegisterMeter(name, m.reg).Mark(i)
}
