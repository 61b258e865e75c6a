// Package history implements the server-side session history engine: an
// append-only log of canvas messages with byte-budget accounting, atomic
// and streamed resets, bans, invites, and thumbnail generation handshakes.
//
// A SessionHistory is a single-writer component: callers must serialize
// access to its mutating methods (append, reset, ban, invite, thumbnail).
// The package does not impose a particular concurrency strategy — callers
// may guard it with a mutex or run it behind a dedicated per-session
// goroutine and inbox; either realizes the linearizable contract the
// package assumes.
package history

import (
	"math"
	"sync"
	"time"
)

// ResetStreamState is the state of the streamed-reset protocol.
type ResetStreamState int

const (
	ResetStreamNone ResetStreamState = iota
	ResetStreamStreaming
	ResetStreamPrepared
)

func (s ResetStreamState) String() string {
	switch s {
	case ResetStreamNone:
		return "None"
	case ResetStreamStreaming:
		return "Streaming"
	case ResetStreamPrepared:
		return "Prepared"
	default:
		return "Unknown"
	}
}

// HistoryIndex identifies a position in a session's log within a specific
// reset epoch, so a client can tell whether a remembered position is still
// valid after a reset.
type HistoryIndex struct {
	SessionID  string
	StartID    int64 // lastResetTime at the time the index was captured
	HistoryPos int64 // lastIndex at the time the index was captured
}

// Listener is invoked synchronously whenever new messages become available
// in the live log. Listeners must not call back into SessionHistory's
// mutating methods — doing so would reenter the single writer.
type Listener func()

// SessionHistory is the append-only log, size accounting, reset
// coordinator, and owner of a session's bans, invites, and thumbnail state.
type SessionHistory struct {
	mu sync.Mutex

	id        string
	startTime time.Time

	backend Backend

	lastResetTime int64 // ms since epoch
	firstIndex    int64
	lastIndex     int64

	sizeInBytes   uint
	baseSizeLimit uint

	emergencyExtra uint

	overrideSizeLimit   uint
	autoResetThreshold  uint
	autoResetBaseSize   uint

	bans    *BanList
	invites *InviteStore
	auth    authSets

	thumbnailCtxID      uint8
	thumbnailCorrelator string
	thumbnailCounter    uint64

	password string // hashed session join password, "" = none

	resetState              ResetStreamState
	resetStreamCtxID        uint8
	resetStream             *ResetStreamConsumer
	resetStreamSize         uint
	resetStreamStartIndex   int64
	resetStreamMessageCount int64
	resetStreamLastErr      StreamResetAddResult
	resetStreamHadErr       bool

	listeners []Listener
}

// Config configures a new SessionHistory.
type Config struct {
	ID             string
	BaseSizeLimit  uint
	EmergencyExtra uint
	MaxInvites     int
	MaxInviteUses  int
	Now            time.Time
}

// New constructs a fresh SessionHistory bound to backend.
func New(cfg Config, backend Backend) *SessionHistory {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	maxInvites := cfg.MaxInvites
	if maxInvites <= 0 {
		maxInvites = 100
	}
	maxInviteUses := cfg.MaxInviteUses
	if maxInviteUses <= 0 {
		maxInviteUses = 1000
	}

	if backend == nil {
		backend = &nopBackend{}
	}

	h := &SessionHistory{
		id:             cfg.ID,
		startTime:      now,
		backend:        backend,
		lastResetTime:  now.UnixMilli(),
		firstIndex:     0,
		lastIndex:      -1,
		baseSizeLimit:  clampSizeLimit(cfg.BaseSizeLimit),
		emergencyExtra: cfg.EmergencyExtra,
		bans:           NewBanList(),
		invites:        NewInviteStore(maxInvites, maxInviteUses),
		auth:           newAuthSets(),
		resetState:     ResetStreamNone,
	}

	h.overrideSizeLimit = backend.OverrideSizeLimit()
	h.autoResetThreshold = backend.AutoResetThreshold()

	return h
}

// clampSizeLimit mirrors the upstream clamp to the platform int maximum.
func clampSizeLimit(v uint) uint {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return v
}

// ID returns the session's immutable identifier.
func (h *SessionHistory) ID() string { return h.id }

// Backend returns the backend this session was constructed with. The
// pointer is fixed at construction time, so no locking is needed to read
// it; callers may use it to probe for optional capabilities (e.g. a
// backend that can enumerate its full log for client catch-up).
func (h *SessionHistory) Backend() Backend { return h.backend }

// StartTime returns the session's creation time.
func (h *SessionHistory) StartTime() time.Time { return h.startTime }

// HistoryLoaded seeds size/index state from a previously persisted log. It
// may be called at most once, before any message is appended.
func (h *SessionHistory) HistoryLoaded(size uint, messageCount int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lastIndex != -1 {
		return errAlreadyLoaded
	}

	h.sizeInBytes = size
	h.lastIndex = messageCount - 1
	h.autoResetBaseSize = size

	return h.backend.HistoryLoaded(size, messageCount)
}

// FirstIndex returns the logical index of the oldest retained message.
func (h *SessionHistory) FirstIndex() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.firstIndex
}

// LastIndex returns the index of the most recently appended message.
func (h *SessionHistory) LastIndex() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastIndex
}

// SizeInBytes returns the sum of lengths over retained messages.
func (h *SessionHistory) SizeInBytes() uint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sizeInBytes
}

// LastResetTime returns the millisecond timestamp of the most recent reset.
func (h *SessionHistory) LastResetTime() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastResetTime
}

// SetBaseSizeLimit updates the configured ceiling (0 = unlimited), clamped
// to the platform int maximum.
func (h *SessionHistory) SetBaseSizeLimit(limit uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.baseSizeLimit = clampSizeLimit(limit)
}

// SetOverrideSizeLimit sets a transient override (0 = none). When nonzero
// it takes precedence over the base limit, even if smaller.
func (h *SessionHistory) SetOverrideSizeLimit(limit uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overrideSizeLimit = limit
}

// CurrentSizeLimit returns the override limit if set, else the base limit.
func (h *SessionHistory) CurrentSizeLimit() uint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentSizeLimitLocked()
}

func (h *SessionHistory) currentSizeLimitLocked() uint {
	if h.overrideSizeLimit != 0 {
		return h.overrideSizeLimit
	}
	return h.baseSizeLimit
}

// SetAutoResetThreshold updates the configured auto-reset threshold byte
// count (0 = disabled).
func (h *SessionHistory) SetAutoResetThreshold(threshold uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoResetThreshold = threshold
}

// EffectiveAutoResetThreshold returns the byte count at which the upper
// layer should trigger an auto-reset, or 0 if auto-reset is disabled.
func (h *SessionHistory) EffectiveAutoResetThreshold() uint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.effectiveAutoResetThresholdLocked()
}

func (h *SessionHistory) effectiveAutoResetThresholdLocked() uint {
	if h.autoResetThreshold == 0 {
		return 0
	}
	candidate := h.autoResetThreshold + h.autoResetBaseSize
	if limit := h.currentSizeLimitLocked(); limit > 0 {
		cap90 := uint(float64(limit) * 0.9)
		if candidate > cap90 {
			return cap90
		}
	}
	return candidate
}

// hasRegularSpaceFor reports whether length more bytes fit within the
// current regular-tier budget.
func (h *SessionHistory) hasRegularSpaceFor(length uint) bool {
	limit := h.currentSizeLimitLocked()
	if limit == 0 {
		return true
	}
	return h.sizeInBytes+length <= limit
}

// hasEmergencySpaceFor reports whether length more bytes fit within the
// emergency-tier budget (regular limit plus the emergency allowance).
func (h *SessionHistory) hasEmergencySpaceFor(length uint) bool {
	limit := h.currentSizeLimitLocked()
	if limit == 0 {
		return true
	}
	return h.sizeInBytes+length <= limit+h.emergencyExtra
}

// AddMessage appends msg to the live log if it fits within the regular
// byte budget.
func (h *SessionHistory) AddMessage(msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.appendLocked(msg, h.hasRegularSpaceFor(msg.Length()))
}

// AddEmergencyMessage appends msg even when the regular budget is
// exhausted, as long as it fits within the emergency allowance. Intended
// for critical control messages that must never be dropped.
func (h *SessionHistory) AddEmergencyMessage(msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.appendLocked(msg, h.hasEmergencySpaceFor(msg.Length()))
}

func (h *SessionHistory) appendLocked(msg Message, admitted bool) bool {
	if !admitted {
		return false
	}

	if err := h.backend.HistoryAdd(msg); err != nil {
		return false
	}

	h.sizeInBytes += msg.Length()
	h.lastIndex++
	h.notifyLocked()
	return true
}

// Reset atomically replaces the live log with newHistory. It rejects the
// replacement (leaving the log unchanged) if the total size exceeds the
// current size limit.
func (h *SessionHistory) Reset(newHistory []Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	var newSize uint
	for _, m := range newHistory {
		newSize += m.Length()
	}

	if limit := h.currentSizeLimitLocked(); limit > 0 && newSize > limit {
		return false
	}

	h.abortStreamedResetLocked()

	if err := h.backend.HistoryReset(newHistory); err != nil {
		return false
	}

	h.sizeInBytes = newSize
	h.lastResetTime = time.Now().UnixMilli()
	h.firstIndex = h.lastIndex + 1
	h.lastIndex += int64(len(newHistory))
	h.autoResetBaseSize = newSize

	h.notifyLocked()
	return true
}

// Index returns the session's current HistoryIndex.
func (h *SessionHistory) Index() HistoryIndex {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HistoryIndex{SessionID: h.id, StartID: h.lastResetTime, HistoryPos: h.lastIndex}
}

// CanSkipToHistoryIndex reports whether hi still refers to a valid,
// retained position in the current reset epoch.
func (h *SessionHistory) CanSkipToHistoryIndex(hi HistoryIndex) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if hi.SessionID != h.id || hi.StartID != h.lastResetTime {
		return false
	}
	return h.firstIndex <= hi.HistoryPos && hi.HistoryPos <= h.lastIndex
}

// AddListener registers a callback invoked synchronously after each
// successful append, reset, or streamed-reset resolve. Listeners must not
// call back into SessionHistory's mutating methods.
func (h *SessionHistory) AddListener(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

func (h *SessionHistory) notifyLocked() {
	for _, l := range h.listeners {
		l()
	}
}

var errAlreadyLoaded = sessionError("history already loaded")

type sessionError string

func (e sessionError) Error() string { return string(e) }
