package clientmsg

import (
	"encoding/json"
	"testing"

	"github.com/mutgos/mutgos/pkg/types"
)

func id(site types.SiteId, entity types.EntityId) types.Id {
	return types.Id{Site: site, Entity: entity}
}

// TestAuthenticationRoundTrip matches spec.md §8 scenario S2: a client
// JSON payload parses into the expected struct, and serializing a
// result produces the expected wire shape.
func TestAuthenticationRoundTrip(t *testing.T) {
	in := []byte(`{"messageType":"AuthenticateRequest","name":"alice","password":"x","site":1,"isReconnect":false,"windowSize":8}`)

	msg, err := Decode(in)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	req, ok := msg.(*AuthenticationRequest)
	if !ok {
		t.Fatalf("got %T, want *AuthenticationRequest", msg)
	}
	if req.Name != "alice" || req.Password != "x" || req.Site != 1 || req.IsReconnect || req.WindowSize != 8 {
		t.Errorf("unexpected fields: %+v", req)
	}

	result := &AuthenticationResult{
		Header:            Header{MessageType: "AuthenticateResult"},
		Authenticated:     true,
		NegotiationResult: true,
	}
	out, err := Encode(result)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"messageType":          "AuthenticateResult",
		"authenticationResult": true,
		"negotiationResult":    true,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %v, want %v", k, got[k], v)
		}
	}
}

// TestRoundTrip_AllVariants covers spec.md §8 property 4: restore(save(m))
// == m for every registered variant.
func TestRoundTrip_AllVariants(t *testing.T) {
	roomId := id(1, 7)
	cases := []Message{
		&DataAcknowledge{Header: Header{MessageType: "DataAcknowledge"}, MessageSerId: 42},
		&DataAcknowledgeReconnect{Header: Header{MessageType: "DataAcknowledgeReconnect"}, MessageSerId: 7},
		&ChannelStatusChange{Header: Header{MessageType: "ChannelStatusChange"}, ChannelName: "main", State: ChannelStateOpen},
		&RequestSiteList{Header: Header{MessageType: "RequestSiteList"}},
		&SiteList{
			Header: Header{MessageType: "SiteList"},
			Sites:  []SiteInfo{{Id: 1, Name: "Prime", Description: "the first site", OnlineCount: 3}},
		},
		&AuthenticationRequest{
			Header: Header{MessageType: "AuthenticateRequest"}, Name: "bob", Password: "hunter2",
			Site: 1, IsReconnect: true, WindowSize: 16,
		},
		&AuthenticationResult{Header: Header{MessageType: "AuthenticateResult"}, Authenticated: true, NegotiationResult: false},
		&ChannelRequestClose{Header: Header{MessageType: "ChannelRequestClose"}, ChannelsToClose: []string{"main", "combat"}},
		&Disconnect{Header: Header{MessageType: "Disconnect"}, Reason: "idle timeout"},
		&ChannelData{Header: Header{MessageType: "ChannelData"}, ChannelName: "main", Payload: json.RawMessage(`{"x":1}`)},
		&TextData{Header: Header{MessageType: "TextData"}, ChannelName: "main", Text: "hello"},
		&ConnectPuppetRequest{Header: Header{MessageType: "ConnectPuppetRequest"}, PuppetEntityId: id(1, 9)},
		&ExecuteEntity{
			Header: Header{MessageType: "ExecuteEntity"}, EntityId: id(1, 10),
			ProgramArguments: []string{"north"}, ChannelSubtype: "command",
		},
		&FindEntityRequest{
			Header: Header{MessageType: "FindEntityRequest"}, SearchString: "rock",
			ExactMatch: true, EntityType: types.EntityTypeThing,
		},
		&FindEntityResult{
			Header: Header{MessageType: "FindEntityResult"},
			Result: []EntityMatch{{Id: id(1, 10), Name: "rock", Type: types.EntityTypeThing}},
		},
		&MatchNameRequest{
			Header: Header{MessageType: "MatchNameRequest"}, SearchString: "roc", ExactMatch: false,
			EntityType: types.EntityTypeThing,
		},
		&MatchNameResult{Header: Header{MessageType: "MatchNameResult"}, MatchingIds: []types.Id{id(1, 10)}, Ambiguous: true},
		&LocationInfoChange{Header: Header{MessageType: "LocationInfoChange"}, NewRoomId: &roomId, NewRoomName: "Hall"},
	}

	for _, m := range cases {
		encoded, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode(%s): %v", m.Type(), err)
		}
		restored, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%s): %v", m.Type(), err)
		}
		reencoded, err := Encode(restored)
		if err != nil {
			t.Fatalf("re-Encode(%s): %v", m.Type(), err)
		}
		if string(reencoded) != string(encoded) {
			t.Errorf("%s: round trip mismatch\n got:  %s\n want: %s", m.Type(), reencoded, encoded)
		}
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"messageType":"NotARealType"}`))
	if err == nil {
		t.Fatal("expected an error for an unregistered message type")
	}
}

func TestClone_IsIndependentOfOriginal(t *testing.T) {
	orig := &ChannelRequestClose{
		Header:          Header{MessageType: "ChannelRequestClose"},
		ChannelsToClose: []string{"main"},
	}
	clone := orig.Clone().(*ChannelRequestClose)
	clone.ChannelsToClose[0] = "mutated"

	if orig.ChannelsToClose[0] != "main" {
		t.Error("mutating the clone's slice affected the original")
	}
}

func TestIdJSONShape(t *testing.T) {
	out, err := json.Marshal(id(1, 2))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"siteId":1,"entityId":2}`
	if string(out) != want {
		t.Errorf("Id JSON = %s, want %s", out, want)
	}

	var back types.Id
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != id(1, 2) {
		t.Errorf("round trip = %v, want %v", back, id(1, 2))
	}
}
