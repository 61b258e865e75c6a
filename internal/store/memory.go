// Package store provides history.Backend implementations: an in-memory
// store for tests and single-process/dev deployments, and a PostgreSQL
// store for durable multi-restart deployments.
package store

import (
	"sync"
	"time"

	"canvasd/internal/history"
)

// MemoryBackend is an in-memory history.Backend. It is safe for concurrent
// use (SessionHistory already serializes calls into it, but tests and
// diagnostics may read its snapshot methods concurrently).
type MemoryBackend struct {
	mu sync.Mutex

	live    []history.Message
	pending []history.Message
	pendingOpen bool

	bans []banTrailEntry

	thumbnail       []byte
	thumbnailAt     time.Time
	overrideLimit   uint
	autoResetThresh uint
}

type banTrailEntry struct {
	id                                         int
	username, ip, extAuthID, sid, bannedBy     string
	removed                                    bool
}

// NewMemoryBackend constructs an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) HistoryAdd(msg history.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live = append(b.live, msg)
	return nil
}

func (b *MemoryBackend) HistoryReset(messages []history.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live = append([]history.Message{}, messages...)
	return nil
}

func (b *MemoryBackend) HistoryLoaded(size uint, messageCount int64) error {
	return nil
}

func (b *MemoryBackend) HistoryAddBan(id int, username, ip, extAuthID, sid, bannedBy string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bans = append(b.bans, banTrailEntry{id: id, username: username, ip: ip, extAuthID: extAuthID, sid: sid, bannedBy: bannedBy})
	return nil
}

func (b *MemoryBackend) HistoryRemoveBan(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bans {
		if b.bans[i].id == id {
			b.bans[i].removed = true
		}
	}
	return nil
}

func (b *MemoryBackend) OpenResetStream(seed []history.Message) (history.StreamResetStartResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingOpen {
		return history.StreamResetStartAlreadyActive, nil
	}
	b.pending = append([]history.Message{}, seed...)
	b.pendingOpen = true
	return history.StreamResetStartOk, nil
}

func (b *MemoryBackend) AddResetStreamMessage(msg history.Message) (history.StreamResetAddResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pendingOpen {
		return history.StreamResetAddNotActive, nil
	}
	b.pending = append(b.pending, msg)
	return history.StreamResetAddOk, nil
}

func (b *MemoryBackend) PrepareResetStream() (history.StreamResetPrepareResult, error) {
	return history.StreamResetPrepareOk, nil
}

func (b *MemoryBackend) ResolveResetStream() (int64, uint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var size uint
	for _, m := range b.pending {
		size += m.Length()
	}
	b.live = b.pending
	count := int64(len(b.pending))
	b.pending = nil
	b.pendingOpen = false
	return count, size, nil
}

func (b *MemoryBackend) DiscardResetStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	b.pendingOpen = false
	return nil
}

func (b *MemoryBackend) HasThumbnail() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.thumbnail) > 0
}

func (b *MemoryBackend) ThumbnailGeneratedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.thumbnailAt
}

func (b *MemoryBackend) SetThumbnail(data []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.thumbnail = append([]byte{}, data...)
	b.thumbnailAt = time.Now().UTC()
	return true
}

func (b *MemoryBackend) OverrideSizeLimit() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overrideLimit
}

func (b *MemoryBackend) AutoResetThreshold() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.autoResetThresh
}

// SetOverrideSizeLimit lets an operator adjust the transient override
// policy knob this backend reports.
func (b *MemoryBackend) SetOverrideSizeLimit(v uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrideLimit = v
}

// SetAutoResetThreshold lets an operator adjust the auto-reset threshold
// policy knob this backend reports.
func (b *MemoryBackend) SetAutoResetThreshold(v uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoResetThresh = v
}

// Snapshot returns a copy of the live log, for diagnostics and tests.
func (b *MemoryBackend) Snapshot() []history.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]history.Message, len(b.live))
	copy(out, b.live)
	return out
}

var _ history.Backend = (*MemoryBackend)(nil)
