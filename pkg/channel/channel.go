package channel

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mutgos/mutgos/pkg/clientmsg"
	"github.com/mutgos/mutgos/pkg/log"
	"github.com/mutgos/mutgos/pkg/metrics"
	"github.com/mutgos/mutgos/pkg/types"
)

// Kind is the channel's payload discipline (spec §4.H).
type Kind string

const (
	KindClientData Kind = "ClientData"
	KindText       Kind = "Text"
)

// State re-exports clientmsg's channel state tag so ChannelStatusChange
// messages can be built directly from a Channel's current state.
type State = clientmsg.ChannelState

const (
	StateOpening = clientmsg.ChannelStateOpening
	StateOpen    = clientmsg.ChannelStateOpen
	StateBlocked = clientmsg.ChannelStateBlocked
	StateClosing = clientmsg.ChannelStateClosing
	StateClosed  = clientmsg.ChannelStateClosed
)

// ReceiverCallback is invoked for an item accepted by SendItem when no
// in-process entity is registered to receive it directly. It runs with
// the channel's lock released (see Channel.SendItem) so it may safely
// call back into the same channel — e.g. to Ack or Close it — without
// deadlocking. This is the Go rework of the source's recursive mutex:
// the design note calls for "an explicit callback-in-progress flag",
// which here is simply never holding the lock across the callback.
type ReceiverCallback func(item any)

// Channel is a named, typed conduit between a server-side producer and
// exactly one consumer (spec §4.H). The identity uuid distinguishes
// successive channels that reuse the same name after a close.
type Channel struct {
	mu sync.Mutex

	id      uuid.UUID
	name    string
	kind    Kind
	subtype string

	state State

	windowSize int
	inFlight   int

	pointerHolders map[types.Id]bool

	callbackToken string
	callback      ReceiverCallback
	inCallback    bool

	logger zerolog.Logger
}

// New constructs a channel in the Opening state. windowSize is the
// flow-control window negotiated at authentication, in message counts;
// zero means unbounded.
func New(name string, kind Kind, subtype string, windowSize int) *Channel {
	return &Channel{
		id:             uuid.New(),
		name:           name,
		kind:           kind,
		subtype:        subtype,
		state:          StateOpening,
		windowSize:     windowSize,
		pointerHolders: make(map[types.Id]bool),
		logger:         log.WithChannel(name),
	}
}

func (c *Channel) Id() uuid.UUID { return c.id }
func (c *Channel) Name() string  { return c.name }
func (c *Channel) Kind() Kind    { return c.kind }
func (c *Channel) Subtype() string { return c.subtype }

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AddPointerHolder registers id as referencing this channel; the
// channel cannot be destroyed while any holder remains.
func (c *Channel) AddPointerHolder(id types.Id) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointerHolders[id] = true
}

// RemovePointerHolder drops id's reference. Removing the last holder
// while a close is already pending (Closing) completes the transition
// to Closed.
func (c *Channel) RemovePointerHolder(id types.Id) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pointerHolders, id)
	if c.state == StateClosing && len(c.pointerHolders) == 0 {
		c.state = StateClosed
		c.logger.Debug().Msg("channel closed: last pointer holder released")
	}
}

// RegisterReceiverCallback installs cb under token. Allowed only when
// no callback is set, or the caller re-registers under the same token
// it used before — Go funcs aren't comparable, so token stands in for
// the source's "same callback" identity check.
func (c *Channel) RegisterReceiverCallback(token string, cb ReceiverCallback) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callbackToken != "" && c.callbackToken != token {
		return false
	}
	c.callbackToken = token
	c.callback = cb
	return true
}

// UnregisterReceiverCallback removes cb if token matches the
// registered one. Removing the last listener triggers
// internalCloseLocked.
func (c *Channel) UnregisterReceiverCallback(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callbackToken != token {
		return false
	}
	c.callbackToken = ""
	c.callback = nil
	c.internalCloseLocked()
	return true
}

// SendItem queues item for delivery. Returns true iff accepted. A nil
// (unregistered) receiver silently accepts the item — per
// SPEC_FULL.md's recorded decision this still counts toward flow
// control, since the window tracks "accepted for delivery" rather than
// "observed by a live endpoint".
func (c *Channel) SendItem(item any) bool {
	c.mu.Lock()
	if c.state == StateClosed || c.state == StateClosing {
		c.mu.Unlock()
		metrics.ChannelSendsTotal.WithLabelValues("closed").Inc()
		return false
	}
	if c.state == StateOpening {
		c.state = StateOpen
	}
	if c.windowSize > 0 && c.inFlight >= c.windowSize {
		c.state = StateBlocked
		c.mu.Unlock()
		metrics.ChannelSendsTotal.WithLabelValues("blocked").Inc()
		return false
	}

	c.inFlight++
	cb := c.callback
	c.mu.Unlock()

	if cb != nil {
		c.mu.Lock()
		c.inCallback = true
		c.mu.Unlock()

		cb(item)

		c.mu.Lock()
		c.inCallback = false
		c.mu.Unlock()
	}

	metrics.ChannelSendsTotal.WithLabelValues("accepted").Inc()
	return true
}

// Ack releases n in-flight slots, reopening the channel if it was
// Blocked and the window has room again (spec §8 scenario S5).
func (c *Channel) Ack(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight -= n
	if c.inFlight < 0 {
		c.inFlight = 0
	}
	if c.state == StateBlocked && (c.windowSize == 0 || c.inFlight < c.windowSize) {
		c.state = StateOpen
	}
}

// Close requests an explicit close: Open|Blocked -> Closing, completing
// immediately to Closed if no pointer holders remain.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.internalCloseLocked()
}

func (c *Channel) internalCloseLocked() {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosing
	if len(c.pointerHolders) == 0 {
		c.state = StateClosed
	}
}

// StatusChange builds the ChannelStatusChange notification for the
// channel's current state.
func (c *Channel) StatusChange() *clientmsg.ChannelStatusChange {
	return &clientmsg.ChannelStatusChange{
		Header:      clientmsg.Header{MessageType: "ChannelStatusChange"},
		ChannelName: c.name,
		State:       c.State(),
	}
}

// Registry is the per-session table of open channels, keyed by name
// (spec §4.H: "name unique per session").
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// Open creates and registers a new channel. Fails if name is already
// registered to a channel that has not reached Closed.
func (r *Registry) Open(name string, kind Kind, subtype string, windowSize int) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.channels[name]; ok && existing.State() != StateClosed {
		return nil, fmt.Errorf("channel: %q already open", name)
	}
	ch := New(name, kind, subtype, windowSize)
	r.channels[name] = ch
	return ch, nil
}

func (r *Registry) Get(name string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Close requests a close on name and, once the channel reaches Closed
// with no pointer holders, removes it from the registry.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	if !ok {
		return fmt.Errorf("channel: %q not found", name)
	}
	ch.Close()
	if ch.State() == StateClosed {
		delete(r.channels, name)
	}
	return nil
}

// Names returns every currently registered channel name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.channels))
	for name := range r.channels {
		out = append(out, name)
	}
	return out
}
