package history

import "testing"

func TestSessionHistory_StreamedResetLifecycle(t *testing.T) {
	h := newTestSession(t, 0, 0)

	if result := h.StartStreamedReset(1, "corr-1", nil); result != StreamResetStartOk {
		t.Fatalf("StartStreamedReset = %v, want Ok", result)
	}
	if result := h.StartStreamedReset(1, "corr-2", nil); result != StreamResetStartAlreadyActive {
		t.Fatalf("second StartStreamedReset = %v, want AlreadyActive", result)
	}

	wireMsg := NewMessage(1, 1, []byte("layer-data"))
	streamMsg := NewMessage(TypeResetStream, 1, EncodeMessage(wireMsg))

	if result := h.AddStreamResetMessage(1, streamMsg); result != StreamResetAddOk {
		t.Fatalf("AddStreamResetMessage = %v, want Ok", result)
	}
	if result := h.AddStreamResetMessage(2, streamMsg); result != StreamResetAddInvalidUser {
		t.Fatalf("AddStreamResetMessage with wrong ctx = %v, want InvalidUser", result)
	}

	if result := h.PrepareStreamedReset(1, 1); result != StreamResetPrepareOk {
		t.Fatalf("PrepareStreamedReset = %v, want Ok", result)
	}
	if h.ResetState() != ResetStreamPrepared {
		t.Fatalf("ResetState = %v, want Prepared", h.ResetState())
	}

	offset, err := h.ResolveStreamedReset()
	if err != nil {
		t.Fatalf("ResolveStreamedReset: %v", err)
	}
	// One replayed message plus the synthetic caught_up marker appended by
	// PrepareStreamedReset.
	if offset != 2 {
		t.Fatalf("offset = %d, want 2", offset)
	}
	if h.ResetState() != ResetStreamNone {
		t.Fatalf("ResetState after resolve = %v, want None", h.ResetState())
	}
}

func TestSessionHistory_StreamedResetAbort(t *testing.T) {
	h := newTestSession(t, 0, 0)

	if result := h.StartStreamedReset(1, "corr", nil); result != StreamResetStartOk {
		t.Fatalf("StartStreamedReset = %v, want Ok", result)
	}
	if result := h.AbortStreamedReset(2); result != StreamResetAbortInvalidUser {
		t.Fatalf("AbortStreamedReset with wrong ctx = %v, want InvalidUser", result)
	}
	if result := h.AbortStreamedReset(1); result != StreamResetAbortOk {
		t.Fatalf("AbortStreamedReset = %v, want Ok", result)
	}
	if h.ResetState() != ResetStreamNone {
		t.Fatalf("ResetState after abort = %v, want None", h.ResetState())
	}
	if result := h.AbortStreamedReset(-1); result != StreamResetAbortNotActive {
		t.Fatalf("AbortStreamedReset on an idle session = %v, want NotActive", result)
	}
}

func TestSessionHistory_ResetAbortsInFlightStream(t *testing.T) {
	h := newTestSession(t, 0, 0)

	if result := h.StartStreamedReset(1, "corr", nil); result != StreamResetStartOk {
		t.Fatalf("StartStreamedReset = %v, want Ok", result)
	}

	if !h.Reset(nil) {
		t.Fatalf("expected Reset to succeed")
	}
	if h.ResetState() != ResetStreamNone {
		t.Fatalf("expected Reset to abort the in-flight stream, state = %v", h.ResetState())
	}
}
