package events

import (
	"sync"
	"time"

	"github.com/mutgos/mutgos/pkg/types"
)

// EventType is the closed set of lifecycle notifications the Database
// Access façade fans out to registered listeners (spec §4.D).
type EventType string

const (
	EventEntityCreated EventType = "entity.created"
	EventEntityDeleted EventType = "entity.deleted"
	EventSiteDeleted   EventType = "site.deleted"
)

// Event carries the minimum a listener needs: what happened, and to
// which id. Site deletions carry only the SiteId half of Id populated.
type Event struct {
	Type      EventType
	Id        types.Id
	EntType   types.EntityType
	Timestamp time.Time
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

// Broker fans out façade lifecycle events to every registered listener.
// Listeners register once at startup (spec §4.D: "must not be removed
// concurrently with use") so Subscribe/Unsubscribe take a coarse lock
// rather than anything lock-free.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan Event
	stopCh      chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan Event, 256),
		stopCh:      make(chan struct{}),
	}
}

func (b *Broker) Start() {
	go b.run()
}

func (b *Broker) Stop() {
	close(b.stopCh)
}

func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
	close(sub)
}

// Publish enqueues ev for fan-out. Timestamp is stamped if zero.
func (b *Broker) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- ev:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case ev := <-b.eventCh:
			b.broadcast(ev)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- ev:
		default:
			// listener buffer full; fan-out is best-effort, not a delivery
			// guarantee (no listener blocks the façade).
		}
	}
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
