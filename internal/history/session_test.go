package history

import "testing"

func newTestSession(t *testing.T, baseLimit, emergencyExtra uint) *SessionHistory {
	t.Helper()
	return New(Config{ID: "test-session", BaseSizeLimit: baseLimit, EmergencyExtra: emergencyExtra}, nil)
}

func TestSessionHistory_AddMessageRespectsSizeLimit(t *testing.T) {
	h := newTestSession(t, 10, 0)

	if !h.AddMessage(NewMessage(1, 1, []byte("12345"))) {
		t.Fatalf("expected first message to fit within the budget")
	}
	if h.SizeInBytes() != 5 {
		t.Fatalf("size = %d, want 5", h.SizeInBytes())
	}
	if h.AddMessage(NewMessage(1, 1, []byte("123456"))) {
		t.Fatalf("expected message exceeding remaining budget to be rejected")
	}
	if h.LastIndex() != 0 {
		t.Fatalf("rejected message must not advance the index, got %d", h.LastIndex())
	}
}

func TestSessionHistory_AddEmergencyMessageUsesExtraBudget(t *testing.T) {
	h := newTestSession(t, 5, 5)

	if !h.AddMessage(NewMessage(1, 1, []byte("12345"))) {
		t.Fatalf("expected message to fill the regular budget")
	}
	if h.AddMessage(NewMessage(1, 1, []byte("x"))) {
		t.Fatalf("regular append should be rejected once the base budget is full")
	}
	if !h.AddEmergencyMessage(NewMessage(1, 1, []byte("abcde"))) {
		t.Fatalf("expected emergency append to use the extra allowance")
	}
	if h.AddEmergencyMessage(NewMessage(1, 1, []byte("f"))) {
		t.Fatalf("expected emergency append to be rejected once the extra allowance is also exhausted")
	}
}

func TestSessionHistory_ResetReplacesLogAndAdvancesEpoch(t *testing.T) {
	h := newTestSession(t, 0, 0)

	h.AddMessage(NewMessage(1, 1, []byte("abc")))
	h.AddMessage(NewMessage(1, 1, []byte("def")))

	before := h.Index()

	if !h.Reset([]Message{NewMessage(1, 1, []byte("reset-payload"))}) {
		t.Fatalf("expected reset to succeed with no size limit")
	}

	after := h.Index()
	if after.StartID == before.StartID {
		t.Fatalf("expected reset to advance the epoch (StartID)")
	}
	if h.SizeInBytes() != uint(len("reset-payload")) {
		t.Fatalf("size after reset = %d, want %d", h.SizeInBytes(), len("reset-payload"))
	}
	if h.FirstIndex() != before.HistoryPos+1 {
		t.Fatalf("firstIndex after reset = %d, want %d", h.FirstIndex(), before.HistoryPos+1)
	}
}

func TestSessionHistory_ResetRejectedWhenOversized(t *testing.T) {
	h := newTestSession(t, 5, 0)

	ok := h.Reset([]Message{NewMessage(1, 1, []byte("way too long"))})
	if ok {
		t.Fatalf("expected reset exceeding the size limit to be rejected")
	}
	if h.SizeInBytes() != 0 {
		t.Fatalf("rejected reset must leave state unchanged, size=%d", h.SizeInBytes())
	}
}

func TestSessionHistory_CanSkipToHistoryIndex(t *testing.T) {
	h := newTestSession(t, 0, 0)
	h.AddMessage(NewMessage(1, 1, []byte("a")))
	idx := h.Index()

	if !h.CanSkipToHistoryIndex(idx) {
		t.Fatalf("expected the current index to be valid")
	}

	h.Reset(nil)

	if h.CanSkipToHistoryIndex(idx) {
		t.Fatalf("expected a pre-reset index to be invalidated by the reset")
	}
}

func TestSessionHistory_AddListenerFiresOnAppendAndReset(t *testing.T) {
	h := newTestSession(t, 0, 0)

	var fires int
	h.AddListener(func() { fires++ })

	h.AddMessage(NewMessage(1, 1, []byte("a")))
	h.Reset([]Message{NewMessage(1, 1, []byte("b"))})

	if fires != 2 {
		t.Fatalf("expected 2 listener fires, got %d", fires)
	}
}

func TestSessionHistory_AuthSets(t *testing.T) {
	h := newTestSession(t, 0, 0)

	if h.IsOp("alice") || h.IsTrusted("alice") {
		t.Fatalf("expected no privileges by default")
	}

	h.SetOp("alice", true)
	h.SetTrusted("alice", true)
	h.SetUsername("alice", "Alice")

	if !h.IsOp("alice") || !h.IsTrusted("alice") {
		t.Fatalf("expected privileges to be set")
	}
	if name, ok := h.Username("alice"); !ok || name != "Alice" {
		t.Fatalf("username = %q, %v; want Alice, true", name, ok)
	}

	h.SetOp("alice", false)
	if h.IsOp("alice") {
		t.Fatalf("expected op privilege to be revoked")
	}
}

func TestSessionHistory_PasswordRoundTrip(t *testing.T) {
	h := newTestSession(t, 0, 0)

	if h.HasPassword() {
		t.Fatalf("expected no password by default")
	}
	if ok, err := h.VerifyPassword("anything"); err != nil || !ok {
		t.Fatalf("expected verify to pass with no password set, ok=%v err=%v", ok, err)
	}

	if err := h.SetPassword("s3cret"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if !h.HasPassword() {
		t.Fatalf("expected HasPassword to report true after SetPassword")
	}

	ok, err := h.VerifyPassword("s3cret")
	if err != nil || !ok {
		t.Fatalf("expected correct password to verify, ok=%v err=%v", ok, err)
	}
	ok, err = h.VerifyPassword("wrong")
	if err != nil || ok {
		t.Fatalf("expected incorrect password to fail verification, ok=%v err=%v", ok, err)
	}

	if err := h.SetPassword(""); err != nil {
		t.Fatalf("SetPassword(\"\"): %v", err)
	}
	if h.HasPassword() {
		t.Fatalf("expected password to be cleared")
	}
}

func TestSessionHistory_BansLifecycle(t *testing.T) {
	h := newTestSession(t, 0, 0)

	id := h.AddBan("mallory", "203.0.113.5", "", "", "alice", nil)
	if id == 0 {
		t.Fatalf("expected a non-zero ban id")
	}
	if dup := h.AddBan("mallory", "203.0.113.5", "", "", "alice", nil); dup != 0 {
		t.Fatalf("expected a duplicate ban to be rejected, got id=%d", dup)
	}

	bans := h.Bans()
	if len(bans) != 1 || bans[0].Username != "mallory" {
		t.Fatalf("unexpected bans snapshot: %+v", bans)
	}

	if username := h.RemoveBan(id); username != "mallory" {
		t.Fatalf("RemoveBan = %q, want mallory", username)
	}
	if username := h.RemoveBan(id); username != "" {
		t.Fatalf("expected removing an already-removed ban to be a no-op, got %q", username)
	}
}

func TestSessionHistory_InviteLifecycle(t *testing.T) {
	h := newTestSession(t, 0, 0)

	inv, ok := h.CreateInvite("alice", 2, false, false)
	if !ok {
		t.Fatalf("expected invite creation to succeed")
	}
	if h.InviteCount() != 1 {
		t.Fatalf("InviteCount = %d, want 1", h.InviteCount())
	}

	result := h.CheckInvite("bob-key", "Bob", inv.Secret, true)
	if result != CheckInviteUsed {
		t.Fatalf("CheckInvite = %v, want Used", result)
	}

	result = h.CheckInvite("bob-key", "Bob", inv.Secret, true)
	if result != CheckInviteAlreadyInvited {
		t.Fatalf("repeat CheckInvite = %v, want AlreadyInvited", result)
	}

	if !h.RemoveInvite(inv.Secret) {
		t.Fatalf("expected RemoveInvite to succeed")
	}
	if h.InviteCount() != 0 {
		t.Fatalf("InviteCount after removal = %d, want 0", h.InviteCount())
	}
}

func TestSessionHistory_ThumbnailHandshake(t *testing.T) {
	h := newTestSession(t, 0, 0)

	result, correlator := h.StartThumbnailGeneration(1)
	if result != ThumbnailStartOk {
		t.Fatalf("StartThumbnailGeneration = %v, want Ok", result)
	}
	if again, _ := h.StartThumbnailGeneration(1); again != ThumbnailStartAlreadyGenerating {
		t.Fatalf("expected a second start for the same ctx to report AlreadyGenerating")
	}

	data := append([]byte(correlator), []byte("pngbytes")...)
	if res := h.FinishThumbnailGeneration(1, data); res != ThumbnailFinishOk {
		t.Fatalf("FinishThumbnailGeneration = %v, want Ok", res)
	}
	if !h.HasThumbnail() {
		t.Fatalf("expected a thumbnail to be stored")
	}
}

func TestSessionHistory_HistoryLoadedOnlyOnce(t *testing.T) {
	h := newTestSession(t, 0, 0)

	if err := h.HistoryLoaded(100, 3); err != nil {
		t.Fatalf("HistoryLoaded: %v", err)
	}
	if h.SizeInBytes() != 100 || h.LastIndex() != 2 {
		t.Fatalf("unexpected state after load: size=%d lastIndex=%d", h.SizeInBytes(), h.LastIndex())
	}
	if err := h.HistoryLoaded(200, 5); err == nil {
		t.Fatalf("expected a second HistoryLoaded call to fail")
	}
}
