package servercmd

import (
	"reflect"
	"testing"
)

func TestServerCommand_EncodeDecodeRoundTrip(t *testing.T) {
	cases := []ServerCommand{
		{Cmd: "kick-user"},
		{Cmd: "add-ban", Kwargs: map[string]any{"username": "mallory", "ip": "203.0.113.5"}},
		{Cmd: "create-invite", Args: []any{"alice"}, Kwargs: map[string]any{"max_uses": float64(5)}},
	}

	for _, want := range cases {
		encoded, err := want.Encode()
		if err != nil {
			t.Fatalf("Encode(%+v): %v", want, err)
		}

		got := DecodeServerCommand(encoded, nil)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestServerCommand_Empty(t *testing.T) {
	if !(ServerCommand{}).Empty() {
		t.Fatalf("expected the zero value to be Empty")
	}
	if (ServerCommand{Cmd: "mute"}).Empty() {
		t.Fatalf("expected a command with a non-empty Cmd to not be Empty")
	}
}

func TestDecodeServerCommand_MalformedJSONReturnsSentinel(t *testing.T) {
	got := DecodeServerCommand([]byte("not json"), nil)
	if !got.Empty() {
		t.Fatalf("expected malformed JSON to decode to the empty sentinel, got %+v", got)
	}
}

func TestDecodeServerCommand_GarbageJSONReturnsSentinel(t *testing.T) {
	got := DecodeServerCommand([]byte(`{"cmd": 42}`), nil)
	if !got.Empty() {
		t.Fatalf("expected a non-string cmd field to decode to the empty sentinel, got %+v", got)
	}
}

func TestRateAutoresetOS(t *testing.T) {
	tests := []struct {
		os   string
		want int
	}{
		{"windows", 1},
		{"macos", 1},
		{"linux", 1},
		{"freebsd", 1},
		{"android", -1},
		{"ios", -1},
		{"web", -1},
		{"amiga", 0},
		{"", 0},
	}

	for _, tc := range tests {
		if got := RateAutoresetOS(tc.os); got != tc.want {
			t.Fatalf("RateAutoresetOS(%q) = %d, want %d", tc.os, got, tc.want)
		}
	}
}
