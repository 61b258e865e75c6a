package gateway

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{"valid", Envelope{V: Version, Type: TypeHello}, false},
		{"missing version", Envelope{Type: TypeHello}, true},
		{"wrong version", Envelope{V: "v2", Type: TypeHello}, true},
		{"missing type", Envelope{V: Version}, true},
		{"unknown type", Envelope{V: Version, Type: "bogus"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDataPayload_RoundTrips(t *testing.T) {
	p := DataPayload{Type: 7, ContextID: 1, Body: []byte{0x01, 0x02, 0x03}}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got DataPayload
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != p.Type || got.ContextID != p.ContextID || string(got.Body) != string(p.Body) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestEnvelope_PreservesTimestamp(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env := Envelope{V: Version, Type: TypeHello, TS: ts}

	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Envelope
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.TS.Equal(ts) {
		t.Fatalf("expected ts %v, got %v", ts, got.TS)
	}
}
