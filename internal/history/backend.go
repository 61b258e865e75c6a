package history

import "time"

// Backend is the set of persistence hooks a SessionHistory delegates to.
// Implementations may be memory-only or disk/Postgres-backed; the engine
// itself holds no opinion about durability. All calls happen on the
// session's single writer and may block.
type Backend interface {
	// HistoryAdd persists one appended message to the live log.
	HistoryAdd(msg Message) error
	// HistoryReset persists a full, atomic log replacement.
	HistoryReset(messages []Message) error
	// HistoryLoaded is invoked once at startup with the size and message
	// count of a previously persisted log, seeding SessionHistory state.
	HistoryLoaded(size uint, messageCount int64) error

	// HistoryAddBan appends a ban-log trail entry.
	HistoryAddBan(id int, username, ip, extAuthID, sid, bannedBy string) error
	// HistoryRemoveBan appends a ban-removal trail entry.
	HistoryRemoveBan(id int) error

	// OpenResetStream opens a pending-log store seeded with server-side
	// state messages, ahead of a streamed reset.
	OpenResetStream(seed []Message) (StreamResetStartResult, error)
	// AddResetStreamMessage appends one decoded message to the pending log.
	AddResetStreamMessage(msg Message) (StreamResetAddResult, error)
	// PrepareResetStream seals the pending log ahead of resolve.
	PrepareResetStream() (StreamResetPrepareResult, error)
	// ResolveResetStream finalizes the pending log, returning its message
	// count and total size in bytes.
	ResolveResetStream() (messageCount int64, sizeInBytes uint, err error)
	// DiscardResetStream discards the pending log and releases its resources.
	DiscardResetStream() error

	// HasThumbnail reports whether a thumbnail has been stored.
	HasThumbnail() bool
	// ThumbnailGeneratedAt returns when the stored thumbnail was produced.
	ThumbnailGeneratedAt() time.Time
	// SetThumbnail stores thumbnail bytes, reporting success.
	SetThumbnail(data []byte) bool

	// OverrideSizeLimit returns the current transient size override (0 =
	// none).
	OverrideSizeLimit() uint
	// AutoResetThreshold returns the configured auto-reset threshold (0 =
	// disabled).
	AutoResetThreshold() uint
}
