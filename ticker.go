package main

import (
	"sync"
	"time"
)

// mTicker delivers each tick of one time.Ticker to any number of
// subscribers. Rooms use it to refresh their member gauges.
type mTicker struct {
	mux         sync.Mutex // Protects subscribers and stopped
	subscribers subscribers
	stopped     bool

	ticker *time.Ticker
	stopCh chan struct{}
}

type subscribers map[*subscriber]struct{}

type subscriber struct {
	tick chan time.Time
}

// newMTicker creates and starts a ticker with the given period.
func newMTicker(interval time.Duration) *mTicker {
	t := &mTicker{
		subscribers: make(subscribers),
		ticker:      time.NewTicker(interval),
		stopCh:      make(chan struct{}),
	}
	go t.run()
	return t
}

// subscribe returns a subscriber whose channel receives ticks. Ticks it is
// not ready to receive are dropped. Subscribing to a stopped ticker yields
// an already closed channel.
func (t *mTicker) subscribe() *subscriber {
	t.mux.Lock()
	defer t.mux.Unlock()

	sub := &subscriber{tick: make(chan time.Time, 1)}
	if t.stopped {
		close(sub.tick)
		return sub
	}
	t.subscribers[sub] = struct{}{}
	return sub
}

func (t *mTicker) unsubscribe(sub *subscriber) {
	t.mux.Lock()
	defer t.mux.Unlock()

	if _, ok := t.subscribers[sub]; ok {
		close(sub.tick)
		delete(t.subscribers, sub)
	}
}

// stop halts the ticker and closes every subscribed channel.
func (t *mTicker) stop() {
	t.mux.Lock()
	defer t.mux.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	for sub := range t.subscribers {
		close(sub.tick)
		delete(t.subscribers, sub)
	}
	t.ticker.Stop()
	close(t.stopCh)
}

func (t *mTicker) run() {
	for {
		select {
		case tick := <-t.ticker.C:
			t.mux.Lock()
			for sub := range t.subscribers {
				select {
				case sub.tick <- tick:
				default:
					mark("ticker.dropped", 1)
				}
			}
			t.mux.Unlock()
		case <-t.stopCh:
			return
		}
	}
}
