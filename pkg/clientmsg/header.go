package clientmsg

import (
	"encoding/json"
	"fmt"

	"github.com/mutgos/mutgos/pkg/metrics"
)

// Header carries the three fields every variant shares (spec §6.1):
// the case-exact variant name, and the optional request-correlation
// pair. Embedding Header in a variant struct promotes these fields to
// the top level on Marshal/Unmarshal, matching the flat wire shape —
// no manual envelope merging needed.
type Header struct {
	MessageType       string `json:"messageType"`
	RequestMessageId  uint64 `json:"requestMessageId,omitempty"`
	IsMessageResponse bool   `json:"isMessageResponse,omitempty"`
}

// Type reports the variant's wire name.
func (h Header) Type() string { return h.MessageType }

// Message is the common surface every client-message variant
// implements: Type for the factory-registry lookup, Clone for the deep
// copy semantics §4.G requires of in-process message passing.
type Message interface {
	Type() string
	Clone() Message
}

var registry = make(map[string]func() Message)

// register adds a variant's factory to the table under name. Called
// from each variant's init(), matching the "explicit registry built at
// startup, not global-constructor-order-dependent" design note: every
// registration is a plain map write guarded only by Go's init ordering
// within this package, which import order cannot reshuffle since all
// registrations live in this one package.
func register(name string, factory func() Message) {
	if _, exists := registry[name]; exists {
		panic("clientmsg: duplicate registration for " + name)
	}
	registry[name] = factory
}

// Encode serializes msg to its wire JSON form.
func Encode(msg Message) ([]byte, error) {
	out, err := json.Marshal(msg)
	if err == nil {
		metrics.ClientMessagesTotal.WithLabelValues(msg.Type(), "encode").Inc()
	}
	return out, err
}

// Decode restores a Message from wire JSON by reading messageType,
// looking up the registered factory, and unmarshaling the full payload
// into a fresh instance. Returns an error when the JSON is malformed or
// the type is unknown. Fields missing from the payload are not checked:
// they keep their zero values in the returned message.
func Decode(data []byte) (Message, error) {
	var probe Header
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("clientmsg: decode header: %w", err)
	}
	factory, ok := registry[probe.MessageType]
	if !ok {
		return nil, fmt.Errorf("clientmsg: unknown message type %q", probe.MessageType)
	}
	msg := factory()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("clientmsg: restore %s: %w", probe.MessageType, err)
	}
	metrics.ClientMessagesTotal.WithLabelValues(probe.MessageType, "decode").Inc()
	return msg, nil
}
