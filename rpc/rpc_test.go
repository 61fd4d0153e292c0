package rpc

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCallRoundTrip(t *testing.T) {
	call, err := NewCall("19223201", "BootNotification", map[string]interface{}{
		"reason": "PowerUp",
		"chargingStation": map[string]string{
			"model":      "SingleSocketCharger",
			"vendorName": "VendorX",
		},
	})
	if err != nil {
		t.Fatalf("NewCall: %v", err)
	}

	wire, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != MessageTypeCall {
		t.Fatalf("expected call, got %v", decoded.Type)
	}
	if decoded.UniqueID != "19223201" || decoded.Action != "BootNotification" {
		t.Fatalf("unexpected header: %+v", decoded)
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Reason != "PowerUp" {
		t.Fatalf("payload reason = %q", payload.Reason)
	}
}

func TestDecodeCallResult(t *testing.T) {
	msg, err := Decode([]byte(`[3,"abc",{"currentTime":"2024-05-01T00:00:00Z","interval":300,"status":"Accepted"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != MessageTypeCallResult || msg.UniqueID != "abc" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestDecodeCallError(t *testing.T) {
	msg, err := Decode([]byte(`[4,"abc","SecurityError","not registered",{}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != MessageTypeCallError || msg.ErrorCode != ErrSecurityError {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []struct {
		name string
		in   string
		code ErrorCode
	}{
		{"not json", `{{{`, ErrRpcFrameworkError},
		{"object", `{"a":1}`, ErrRpcFrameworkError},
		{"short array", `[2,"x"]`, ErrRpcFrameworkError},
		{"bad type id", `["x","y","z"]`, ErrRpcFrameworkError},
		{"unknown type id", `[9,"y","z"]`, ErrRpcFrameworkError},
		{"call too short", `[2,"id","Action"]`, ErrFormationViolation},
		{"call action not string", `[2,"id",42,{}]`, ErrFormationViolation},
		{"empty unique id", `[2,"","Action",{}]`, ErrRpcFrameworkError},
		{"unique id too long", `[2,"0123456789012345678901234567890123456789","Action",{}]`, ErrRpcFrameworkError},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.in))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var fe *FrameError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: expected FrameError, got %T", tc.name, err)
		}
		if fe.Code != tc.code {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.code, fe.Code)
		}
	}
}

func TestCallErrorMarshalHasFiveElements(t *testing.T) {
	wire, err := json.Marshal(NewCallError("id1", ErrNotImplemented, "no handler"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields []json.RawMessage
	if err := json.Unmarshal(wire, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fields) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(fields))
	}
}

func TestNewMessageIDFitsWireLimit(t *testing.T) {
	id := NewMessageID()
	if id == "" || len(id) > 36 {
		t.Fatalf("bad message id %q", id)
	}
}
