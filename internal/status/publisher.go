package status

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// subscriberBuffer is the per-subscriber channel capacity. When a subscriber
// falls this far behind, its oldest pending snapshot is dropped; the latest
// state always gets through.
const subscriberBuffer = 16

type subscriber struct {
	ch chan Snapshot
}

// Publisher owns the current snapshot and fans updates out to subscribers.
//
// Publish never blocks on a slow subscriber, and all subscribers observe
// snapshots in the same generation order because stamping and fan-out happen
// under one lock.
type Publisher struct {
	logger     *zerolog.Logger
	subs       map[uint64]*subscriber
	current    Snapshot
	nextSubID  uint64
	generation uint64
	mu         sync.RWMutex
}

// NewPublisher creates a Publisher with no snapshot published yet.
func NewPublisher(logger *zerolog.Logger) *Publisher {
	return &Publisher{
		subs:   make(map[uint64]*subscriber),
		logger: logger,
	}
}

// Current returns the most recently published snapshot. Before the first
// Publish it is the zero Snapshot with Generation 0.
func (p *Publisher) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Publish stamps snap with the next generation and the current time, makes it
// current, and fans it out. Returns the stamped snapshot.
func (p *Publisher) Publish(snap Snapshot) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	snap.Generation = p.generation
	snap.Timestamp = time.Now().UTC()
	p.current = snap

	for _, sub := range p.subs {
		p.send(sub, snap)
	}

	if p.logger != nil {
		p.logger.Debug().
			Uint64("generation", snap.Generation).
			Str("overall", string(snap.Overall)).
			Msg("published status snapshot")
	}
	return snap
}

// send delivers snap without blocking. A full buffer sheds its oldest entry
// first so the subscriber converges on recent state.
func (p *Publisher) send(sub *subscriber, snap Snapshot) {
	select {
	case sub.ch <- snap:
		return
	default:
	}

	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. Cancel is idempotent and closes the channel.
func (p *Publisher) Subscribe() (<-chan Snapshot, func()) {
	_, ch, cancel := p.SubscribeCurrent()
	return ch, cancel
}

// SubscribeCurrent registers a new subscriber and also returns the snapshot
// that was current at subscription time. Registration and the read happen
// under one lock, so every snapshot later delivered on the channel carries a
// strictly newer generation than the returned one. Stream handlers use this
// to send an initial frame without racing concurrent publishes.
func (p *Publisher) SubscribeCurrent() (Snapshot, <-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextSubID++
	id := p.nextSubID
	sub := &subscriber{ch: make(chan Snapshot, subscriberBuffer)}
	p.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(sub.ch)
		})
	}
	return p.current, sub.ch, cancel
}

// SubscriberCount returns the number of live subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
