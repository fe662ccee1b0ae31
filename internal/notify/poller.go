package notify

import (
	"context"
	"sync"
	"time"
)

const defaultPollInterval = 30 * time.Second

// Poller fires on a fixed interval. Receivers compare what they re-read with
// what they hold, so a tick with no change is cheap.
type Poller struct {
	interval time.Duration
	subs     subscribers
	stop     chan struct{}
	once     sync.Once
}

var _ Notifier = (*Poller)(nil)

// NewPoller starts the ticker immediately.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p := &Poller{interval: interval, stop: make(chan struct{})}
	go p.run()
	return p
}

func (p *Poller) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.subs.fire()
		case <-p.stop:
			return
		}
	}
}

// Publish is a no-op; other pollers pick the change up on their next tick.
func (p *Poller) Publish(context.Context) error { return nil }

func (p *Poller) Subscribe(fn func()) func() { return p.subs.add(fn) }

func (p *Poller) Close() error {
	p.once.Do(func() {
		close(p.stop)
		p.subs.clear()
	})
	return nil
}
