package clientmsg

import (
	"encoding/json"

	"github.com/mutgos/mutgos/pkg/types"
)

// ChannelState is the channel state-machine tag (spec §4.H), carried
// on ChannelStatusChange.
type ChannelState string

const (
	ChannelStateOpening ChannelState = "Opening"
	ChannelStateOpen    ChannelState = "Open"
	ChannelStateBlocked ChannelState = "Blocked"
	ChannelStateClosing ChannelState = "Closing"
	ChannelStateClosed  ChannelState = "Closed"
)

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneIds(s []types.Id) []types.Id {
	if s == nil {
		return nil
	}
	out := make([]types.Id, len(s))
	copy(out, s)
	return out
}

// DataAcknowledge acks receipt of a message by serial number.
type DataAcknowledge struct {
	Header
	MessageSerId uint64 `json:"messageSerId"`
}

func (m DataAcknowledge) Clone() Message { return &m }

func init() {
	register("DataAcknowledge", func() Message { return &DataAcknowledge{Header: Header{MessageType: "DataAcknowledge"}} })
}

// DataAcknowledgeReconnect is DataAcknowledge's reconnect-path
// counterpart (same field, distinct wire type so the receiving side
// can tell a resumed session's first ack apart from a steady-state
// one).
type DataAcknowledgeReconnect struct {
	Header
	MessageSerId uint64 `json:"messageSerId"`
}

func (m DataAcknowledgeReconnect) Clone() Message { return &m }

func init() {
	register("DataAcknowledgeReconnect", func() Message {
		return &DataAcknowledgeReconnect{Header: Header{MessageType: "DataAcknowledgeReconnect"}}
	})
}

// ChannelStatusChange notifies the client a channel transitioned
// state.
type ChannelStatusChange struct {
	Header
	ChannelName string       `json:"channelName"`
	State       ChannelState `json:"state"`
}

func (m ChannelStatusChange) Clone() Message { return &m }

func init() {
	register("ChannelStatusChange", func() Message {
		return &ChannelStatusChange{Header: Header{MessageType: "ChannelStatusChange"}}
	})
}

// RequestSiteList asks the server for the available site list; it
// carries no fields beyond the header.
type RequestSiteList struct {
	Header
}

func (m RequestSiteList) Clone() Message { return &m }

func init() {
	register("RequestSiteList", func() Message { return &RequestSiteList{Header: Header{MessageType: "RequestSiteList"}} })
}

// SiteInfo is one entry of a SiteList response.
type SiteInfo struct {
	Id          types.SiteId `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	OnlineCount int          `json:"onlineCount"`
}

// SiteList answers RequestSiteList.
type SiteList struct {
	Header
	Sites []SiteInfo `json:"sites"`
}

func (m SiteList) Clone() Message {
	c := m
	if m.Sites != nil {
		c.Sites = make([]SiteInfo, len(m.Sites))
		copy(c.Sites, m.Sites)
	}
	return &c
}

func init() {
	register("SiteList", func() Message { return &SiteList{Header: Header{MessageType: "SiteList"}} })
}

// AuthenticationRequest is the initial login/reconnect handshake.
type AuthenticationRequest struct {
	Header
	Name        string       `json:"name"`
	Password    string       `json:"password"`
	Site        types.SiteId `json:"site"`
	IsReconnect bool         `json:"isReconnect"`
	WindowSize  int          `json:"windowSize"`
}

func (m AuthenticationRequest) Clone() Message { return &m }

func init() {
	register("AuthenticateRequest", func() Message {
		return &AuthenticationRequest{Header: Header{MessageType: "AuthenticateRequest"}}
	})
}

// AuthenticationResult answers an AuthenticationRequest.
type AuthenticationResult struct {
	Header
	Authenticated     bool `json:"authenticationResult"`
	NegotiationResult bool `json:"negotiationResult"`
}

func (m AuthenticationResult) Clone() Message { return &m }

func init() {
	register("AuthenticateResult", func() Message {
		return &AuthenticationResult{Header: Header{MessageType: "AuthenticateResult"}}
	})
}

// ChannelRequestClose asks the server to close one or more channels by
// name.
type ChannelRequestClose struct {
	Header
	ChannelsToClose []string `json:"channelsToClose"`
}

func (m ChannelRequestClose) Clone() Message {
	c := m
	c.ChannelsToClose = cloneStrings(m.ChannelsToClose)
	return &c
}

func init() {
	register("ChannelRequestClose", func() Message {
		return &ChannelRequestClose{Header: Header{MessageType: "ChannelRequestClose"}}
	})
}

// Disconnect tells the client the session is ending.
type Disconnect struct {
	Header
	Reason string `json:"reason,omitempty"`
}

func (m Disconnect) Clone() Message { return &m }

func init() {
	register("Disconnect", func() Message { return &Disconnect{Header: Header{MessageType: "Disconnect"}} })
}

// ChannelData carries one opaque item on a ClientData channel.
type ChannelData struct {
	Header
	ChannelName string          `json:"channelName"`
	Payload     json.RawMessage `json:"payload"`
}

func (m ChannelData) Clone() Message {
	c := m
	if m.Payload != nil {
		c.Payload = make(json.RawMessage, len(m.Payload))
		copy(c.Payload, m.Payload)
	}
	return &c
}

func init() {
	register("ChannelData", func() Message { return &ChannelData{Header: Header{MessageType: "ChannelData"}} })
}

// TextData carries one rendered line on a Text channel.
type TextData struct {
	Header
	ChannelName string `json:"channelName"`
	Text        string `json:"text"`
}

func (m TextData) Clone() Message { return &m }

func init() {
	register("TextData", func() Message { return &TextData{Header: Header{MessageType: "TextData"}} })
}

// ConnectPuppetRequest asks to attach the session to a puppet entity.
type ConnectPuppetRequest struct {
	Header
	PuppetEntityId types.Id `json:"puppetEntityId"`
}

func (m ConnectPuppetRequest) Clone() Message { return &m }

func init() {
	register("ConnectPuppetRequest", func() Message {
		return &ConnectPuppetRequest{Header: Header{MessageType: "ConnectPuppetRequest"}}
	})
}

// ExecuteEntity asks the server to run entityId as a program/command.
type ExecuteEntity struct {
	Header
	EntityId         types.Id `json:"entityId"`
	ProgramArguments []string `json:"programArguments,omitempty"`
	ChannelSubtype   string   `json:"channelSubtype,omitempty"`
}

func (m ExecuteEntity) Clone() Message {
	c := m
	c.ProgramArguments = cloneStrings(m.ProgramArguments)
	return &c
}

func init() {
	register("ExecuteEntity", func() Message { return &ExecuteEntity{Header: Header{MessageType: "ExecuteEntity"}} })
}

// FindEntityRequest searches by name.
type FindEntityRequest struct {
	Header
	SearchString string           `json:"searchString"`
	ExactMatch   bool             `json:"exactMatch"`
	EntityType   types.EntityType `json:"entityType"`
}

func (m FindEntityRequest) Clone() Message { return &m }

func init() {
	register("FindEntityRequest", func() Message {
		return &FindEntityRequest{Header: Header{MessageType: "FindEntityRequest"}}
	})
}

// EntityMatch is one hit of a FindEntityResult.
type EntityMatch struct {
	Id   types.Id         `json:"id"`
	Name string           `json:"name"`
	Type types.EntityType `json:"type"`
}

// FindEntityResult answers FindEntityRequest. Per SPEC_FULL.md §13's
// recorded decision this variant fully round-trips through
// restore/save, unlike the original's save-only asymmetry.
type FindEntityResult struct {
	Header
	Result            []EntityMatch `json:"result"`
	SecurityViolation bool          `json:"securityViolation"`
	Ambiguous         bool          `json:"ambiguous"`
	Error             bool          `json:"error"`
	ErrorMessage      string        `json:"errorMessage,omitempty"`
}

func (m FindEntityResult) Clone() Message {
	c := m
	if m.Result != nil {
		c.Result = make([]EntityMatch, len(m.Result))
		copy(c.Result, m.Result)
	}
	return &c
}

func init() {
	register("FindEntityResult", func() Message { return &FindEntityResult{Header: Header{MessageType: "FindEntityResult"}} })
}

// MatchNameRequest is FindEntityRequest's sibling for exact/partial
// name matching against the command-parser's matching rules.
type MatchNameRequest struct {
	Header
	SearchString string           `json:"searchString"`
	ExactMatch   bool             `json:"exactMatch"`
	EntityType   types.EntityType `json:"entityType"`
}

func (m MatchNameRequest) Clone() Message { return &m }

func init() {
	register("MatchNameRequest", func() Message { return &MatchNameRequest{Header: Header{MessageType: "MatchNameRequest"}} })
}

// MatchNameResult answers MatchNameRequest. Fully round-trippable, per
// the same §13 decision as FindEntityResult.
type MatchNameResult struct {
	Header
	MatchingIds       []types.Id `json:"matchingIds"`
	SecurityViolation bool       `json:"securityViolation"`
	Ambiguous         bool       `json:"ambiguous"`
}

func (m MatchNameResult) Clone() Message {
	c := m
	c.MatchingIds = cloneIds(m.MatchingIds)
	return &c
}

func init() {
	register("MatchNameResult", func() Message { return &MatchNameResult{Header: Header{MessageType: "MatchNameResult"}} })
}

// LocationInfoChange notifies the client its room changed.
type LocationInfoChange struct {
	Header
	NewRoomId   *types.Id `json:"newRoomId,omitempty"`
	NewRoomName string    `json:"newRoomName,omitempty"`
}

func (m LocationInfoChange) Clone() Message {
	c := m
	if m.NewRoomId != nil {
		id := *m.NewRoomId
		c.NewRoomId = &id
	}
	return &c
}

func init() {
	register("LocationInfoChange", func() Message {
		return &LocationInfoChange{Header: Header{MessageType: "LocationInfoChange"}}
	})
}
