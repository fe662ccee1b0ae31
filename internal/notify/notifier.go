// Package notify carries payload-free "content changed" signals between the
// parts of the system that hold a copy of the snapshot.
package notify

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Notifier publishes and receives change signals. Signals carry no content;
// receivers re-read the full state.
type Notifier interface {
	Publish(ctx context.Context) error
	// Subscribe registers fn and returns a function removing it.
	Subscribe(fn func()) (cancel func())
	Close() error
}

// subscribers is the registry shared by every notifier implementation.
type subscribers struct {
	mu   sync.RWMutex
	next uint64
	fns  map[uint64]func()
}

func (s *subscribers) add(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.fns == nil {
		s.fns = map[uint64]func(){}
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

// fire calls every subscriber in registration order on the calling goroutine.
func (s *subscribers) fire() {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.fns[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *subscribers) clear() {
	s.mu.Lock()
	s.fns = nil
	s.mu.Unlock()
}

// newOrigin returns an id identifying this process on shared channels so a
// notifier can drop its own echoes.
func newOrigin() string {
	return uuid.NewString()
}

// Broadcaster is the in-process channel. Publish runs every subscriber
// before returning.
type Broadcaster struct {
	subs   subscribers
	closed bool
	mu     sync.Mutex
}

var _ Notifier = (*Broadcaster)(nil)

// NewBroadcaster returns an in-process notifier.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

func (b *Broadcaster) Publish(context.Context) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	b.subs.fire()
	return nil
}

func (b *Broadcaster) Subscribe(fn func()) func() { return b.subs.add(fn) }

func (b *Broadcaster) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.subs.clear()
	return nil
}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("notify: notifier closed")

// Multi fans a signal out to several notifiers.
type Multi struct {
	notifiers []Notifier
}

var _ Notifier = (*Multi)(nil)

// NewMulti combines notifiers. Nil entries are skipped.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Publish signals every notifier and joins their errors.
func (m *Multi) Publish(ctx context.Context) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Publish(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Subscribe(fn func()) func() {
	cancels := make([]func(), 0, len(m.notifiers))
	for _, n := range m.notifiers {
		cancels = append(cancels, n.Subscribe(fn))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports how many notifiers are combined.
func (m *Multi) Len() int { return len(m.notifiers) }
