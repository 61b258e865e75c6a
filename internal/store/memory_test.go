package store

import (
	"testing"

	"canvasd/internal/history"
)

func TestMemoryBackend_AddAndSnapshot(t *testing.T) {
	b := NewMemoryBackend()

	m1 := history.NewMessage(1, 0, []byte("a"))
	m2 := history.NewMessage(1, 0, []byte("bb"))

	if err := b.HistoryAdd(m1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.HistoryAdd(m2); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := b.Snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if string(got[0].Payload()) != "a" || string(got[1].Payload()) != "bb" {
		t.Fatalf("unexpected snapshot contents: %+v", got)
	}
}

func TestMemoryBackend_ResetStreamLifecycle(t *testing.T) {
	b := NewMemoryBackend()

	seed := history.NewMessage(1, 0, []byte("seed"))
	result, err := b.OpenResetStream([]history.Message{seed})
	if err != nil || result != history.StreamResetStartOk {
		t.Fatalf("open: %v %v", result, err)
	}

	again, err := b.OpenResetStream(nil)
	if err != nil || again != history.StreamResetStartAlreadyActive {
		t.Fatalf("expected AlreadyActive, got %v %v", again, err)
	}

	added := history.NewMessage(1, 0, []byte("more"))
	addResult, err := b.AddResetStreamMessage(added)
	if err != nil || addResult != history.StreamResetAddOk {
		t.Fatalf("add: %v %v", addResult, err)
	}

	count, size, err := b.ResolveResetStream()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 messages resolved, got %d", count)
	}
	if size != seed.Length()+added.Length() {
		t.Fatalf("expected size %d, got %d", seed.Length()+added.Length(), size)
	}

	snap := b.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected live log to contain 2 messages, got %d", len(snap))
	}
}

func TestMemoryBackend_DiscardResetStream(t *testing.T) {
	b := NewMemoryBackend()

	if _, err := b.OpenResetStream(nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := b.AddResetStreamMessage(history.NewMessage(1, 0, []byte("x"))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.DiscardResetStream(); err != nil {
		t.Fatalf("discard: %v", err)
	}

	result, err := b.OpenResetStream(nil)
	if err != nil || result != history.StreamResetStartOk {
		t.Fatalf("expected a fresh stream to be openable after discard, got %v %v", result, err)
	}
}

func TestMemoryBackend_Thumbnail(t *testing.T) {
	b := NewMemoryBackend()

	if b.HasThumbnail() {
		t.Fatalf("expected no thumbnail initially")
	}
	if !b.SetThumbnail([]byte{1, 2, 3}) {
		t.Fatalf("set thumbnail should succeed")
	}
	if !b.HasThumbnail() {
		t.Fatalf("expected thumbnail after SetThumbnail")
	}
	if b.ThumbnailGeneratedAt().IsZero() {
		t.Fatalf("expected a non-zero generation time")
	}
}

func TestMemoryBackend_PolicyKnobs(t *testing.T) {
	b := NewMemoryBackend()

	if b.OverrideSizeLimit() != 0 || b.AutoResetThreshold() != 0 {
		t.Fatalf("expected zero-value defaults")
	}
	b.SetOverrideSizeLimit(1024)
	b.SetAutoResetThreshold(512)
	if b.OverrideSizeLimit() != 1024 || b.AutoResetThreshold() != 512 {
		t.Fatalf("policy knobs did not stick")
	}
}
