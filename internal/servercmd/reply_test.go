package servercmd

import (
	"encoding/json"
	"testing"
)

func decodeJSON(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	return m
}

func TestMakeResult(t *testing.T) {
	r := MakeResult("add-ban", true, "ban added")
	data, err := r.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := decodeJSON(t, data)
	if got["type"] != "result" {
		t.Fatalf("type = %v, want result", got["type"])
	}
	if got["message"] != "ban added" {
		t.Fatalf("message = %v, want \"ban added\"", got["message"])
	}
	if got["cmd"] != "add-ban" {
		t.Fatalf("cmd = %v, want add-ban", got["cmd"])
	}
	if got["ok"] != true {
		t.Fatalf("ok = %v, want true", got["ok"])
	}
}

func TestMakeError(t *testing.T) {
	data, err := MakeError("forbidden", "not an operator").Encode()
	got := decodeJSON(t, must(t, data, err))
	if got["type"] != "error" {
		t.Fatalf("type = %v, want error", got["type"])
	}
	if got["code"] != "forbidden" {
		t.Fatalf("code = %v, want forbidden", got["code"])
	}
	if got["message"] != "not an operator" {
		t.Fatalf("message = %v, want \"not an operator\"", got["message"])
	}
}

func TestMakeCatchupAndCaughtUp(t *testing.T) {
	catchupData, catchupErr := MakeCatchup(7).Encode()
	got := decodeJSON(t, must(t, catchupData, catchupErr))
	if got["type"] != "catchup" {
		t.Fatalf("type = %v, want catchup", got["type"])
	}
	if got["count"] != float64(7) {
		t.Fatalf("count = %v, want 7", got["count"])
	}

	caughtUpData, caughtUpErr := MakeCaughtUp().Encode()
	got = decodeJSON(t, must(t, caughtUpData, caughtUpErr))
	if got["type"] != "caughtup" {
		t.Fatalf("type = %v, want caughtup", got["type"])
	}
	if _, hasMessage := got["message"]; hasMessage {
		t.Fatalf("expected no message field on an empty-message reply, got %v", got["message"])
	}
}

func TestMakeBanImportResultAndExportResult(t *testing.T) {
	importData, importErr := MakeBanImportResult(10, 7).Encode()
	got := decodeJSON(t, must(t, importData, importErr))
	if got["type"] != "banimpex" || got["op"] != "import" {
		t.Fatalf("unexpected import reply: %+v", got)
	}
	if got["total"] != float64(10) || got["imported"] != float64(7) {
		t.Fatalf("unexpected import counts: %+v", got)
	}

	exportData, exportErr := MakeBanExportResult(4).Encode()
	got = decodeJSON(t, must(t, exportData, exportErr))
	if got["type"] != "banimpex" || got["op"] != "export" {
		t.Fatalf("unexpected export reply: %+v", got)
	}
	if got["count"] != float64(4) {
		t.Fatalf("count = %v, want 4", got["count"])
	}
}

func TestMakeInviteCreated(t *testing.T) {
	inviteData, inviteErr := MakeInviteCreated("s3cr3t", 3, true, false).Encode()
	got := decodeJSON(t, must(t, inviteData, inviteErr))
	if got["type"] != "invitecreated" {
		t.Fatalf("type = %v, want invitecreated", got["type"])
	}
	if got["secret"] != "s3cr3t" || got["maxUses"] != float64(3) {
		t.Fatalf("unexpected invite fields: %+v", got)
	}
	if got["trust"] != true || got["op"] != false {
		t.Fatalf("unexpected trust/op fields: %+v", got)
	}
}

func TestMakePasswordChange(t *testing.T) {
	pwData, pwErr := MakePasswordChange(true).Encode()
	got := decodeJSON(t, must(t, pwData, pwErr))
	if got["type"] != "passwordchange" || got["hasPassword"] != true {
		t.Fatalf("unexpected reply: %+v", got)
	}
}

func TestServerReply_UnmarshalJSON_UnknownTypeFallsBack(t *testing.T) {
	r := ParseServerReply([]byte(`{"type":"not-a-real-type","message":"hi","foo":"bar"}`), nil)
	if r.Type != ReplyUnknown {
		t.Fatalf("Type = %v, want ReplyUnknown", r.Type)
	}
	if r.Message != "hi" {
		t.Fatalf("Message = %q, want hi", r.Message)
	}
	if r.Fields["foo"] != "bar" {
		t.Fatalf("Fields[foo] = %v, want bar", r.Fields["foo"])
	}
}

func TestParseServerReply_MalformedJSONReturnsUnknownSentinel(t *testing.T) {
	r := ParseServerReply([]byte("not json"), nil)
	if r.Type != ReplyUnknown {
		t.Fatalf("Type = %v, want ReplyUnknown", r.Type)
	}
}

func TestServerReply_EncodeDecodeRoundTrip(t *testing.T) {
	want := MakeSizeLimitWarning(900, 1000)

	data, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := ParseServerReply(data, nil)
	if got.Type != want.Type {
		t.Fatalf("Type = %v, want %v", got.Type, want.Type)
	}
	if got.Fields["size"] != float64(900) || got.Fields["limit"] != float64(1000) {
		t.Fatalf("unexpected fields after round trip: %+v", got.Fields)
	}
}

func must(t *testing.T, data []byte, err error) []byte {
	t.Helper()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}
