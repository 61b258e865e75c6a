package history

import (
	"fmt"
	"time"

	"canvasd/internal/servercmd"
)

// resetStreamRejectError carries the specific StreamResetAddResult a
// reset-stream callback rejected a message with, so AddStreamResetMessage
// can translate ResetStreamConsumer.Push's generic error back into the
// closed result enum.
type resetStreamRejectError struct {
	result StreamResetAddResult
}

func (e *resetStreamRejectError) Error() string {
	return fmt.Sprintf("reset stream message rejected: %s", e.result)
}

// isAllowedInResetStream reports whether a decoded inner message may be
// replayed into a streamed reset's pending log: regular canvas messages and
// chat are allowed, session control messages and other server metadata are
// not.
func isAllowedInResetStream(m Message) bool {
	if m.IsControl() {
		return false
	}
	if m.IsServerMeta() && m.Type() != TypeChat {
		return false
	}
	return true
}

// TypeChat is the one server-meta message type permitted inside a streamed
// reset's replayed messages (chat history is replayed across a reset;
// everything else server-meta, e.g. join/leave notices, is not).
const TypeChat MessageType = 196

// StartStreamedReset begins a streamed reset. The caller supplies the
// correlator string the upper layer already chose for this handshake, and
// any server-side state messages (e.g. current layer/tool state) to seed
// the pending log with.
func (h *SessionHistory) StartStreamedReset(ctxID uint8, correlator string, serverSideStateMessages []Message) StreamResetStartResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resetState != ResetStreamNone {
		return StreamResetStartAlreadyActive
	}

	softReset := NewMessage(TypeSoftReset, ctxID, nil)
	replyBytes, err := servercmd.MakeStreamedResetStart(correlator).Encode()
	if err != nil {
		return StreamResetStartWriteError
	}
	streamStart := NewMessage(TypeServerCommand, 0, replyBytes)

	combined := softReset.Length() + streamStart.Length()
	if !h.hasRegularSpaceFor(combined) {
		return StreamResetStartOutOfSpace
	}

	result, err := h.backend.OpenResetStream(serverSideStateMessages)
	if err != nil {
		return StreamResetStartWriteError
	}
	if result != StreamResetStartOk {
		return result
	}

	if !h.appendLocked(softReset, true) || !h.appendLocked(streamStart, true) {
		_ = h.backend.DiscardResetStream()
		return StreamResetStartWriteError
	}

	h.resetState = ResetStreamStreaming
	h.resetStreamCtxID = ctxID
	h.resetStream = nil
	h.resetStreamSize = 0
	h.resetStreamStartIndex = h.lastIndex + 1
	h.resetStreamMessageCount = 0
	h.resetStreamHadErr = false
	return StreamResetStartOk
}

// AddStreamResetMessage feeds one ResetStream wire message's payload bytes
// into the active streamed reset's consumer.
func (h *SessionHistory) AddStreamResetMessage(ctxID uint8, msg Message) StreamResetAddResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resetState != ResetStreamStreaming {
		return StreamResetAddNotActive
	}
	if ctxID != h.resetStreamCtxID {
		return StreamResetAddInvalidUser
	}
	payload, ok := msg.ResetStreamPayload()
	if !ok {
		return StreamResetAddBadType
	}
	if len(payload) == 0 {
		return StreamResetAddOk
	}

	if h.resetStream == nil {
		h.resetStream = NewResetStreamConsumer(h.resetStreamCallbackLocked)
	}

	if err := h.resetStream.Push(payload); err != nil {
		h.resetStreamHadErr = true
		if rej, ok := err.(*resetStreamRejectError); ok {
			h.resetStreamLastErr = rej.result
			return rej.result
		}
		h.resetStreamLastErr = StreamResetAddConsumerError
		return StreamResetAddConsumerError
	}
	return StreamResetAddOk
}

func (h *SessionHistory) resetStreamCallbackLocked(m Message) error {
	if !isAllowedInResetStream(m) {
		return &resetStreamRejectError{result: StreamResetAddDisallowedType}
	}

	limit := h.currentSizeLimitLocked()
	if limit > 0 && h.resetStreamSize+m.Length() > limit {
		return &resetStreamRejectError{result: StreamResetAddOutOfSpace}
	}

	if m.ContextID() != h.resetStreamCtxID {
		m = m.WithContextID(h.resetStreamCtxID)
	}

	result, err := h.backend.AddResetStreamMessage(m)
	if err != nil || result != StreamResetAddOk {
		if result == StreamResetAddOk {
			result = StreamResetAddConsumerError
		}
		return &resetStreamRejectError{result: result}
	}

	h.resetStreamSize += m.Length()
	h.resetStreamMessageCount++
	return nil
}

// PrepareStreamedReset seals the pending log once the sender believes it
// has transmitted expectedMessageCount messages.
func (h *SessionHistory) PrepareStreamedReset(ctxID uint8, expectedMessageCount int64) StreamResetPrepareResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resetState != ResetStreamStreaming {
		return StreamResetPrepareNotActive
	}
	if ctxID != h.resetStreamCtxID {
		return StreamResetPrepareInvalidUser
	}

	if h.resetStream != nil {
		if err := h.resetStream.Finish(); err != nil {
			h.resetStream = nil
			return h.abortForPrepareFailureLocked()
		}
		h.resetStream = nil
	}

	if h.resetStreamMessageCount != expectedMessageCount || expectedMessageCount == 0 {
		h.discardPendingLocked()
		return StreamResetPrepareInvalidMessageCount
	}

	caughtUp := NewMessage(TypeCaughtUp, 0, nil)
	if addResult, err := h.backend.AddResetStreamMessage(caughtUp); err != nil || addResult != StreamResetAddOk {
		h.discardPendingLocked()
		if addResult == StreamResetAddOutOfSpace {
			return StreamResetPrepareOutOfSpace
		}
		return StreamResetPrepareConsumerError
	}
	h.resetStreamMessageCount++
	h.resetStreamSize += caughtUp.Length()

	result, err := h.backend.PrepareResetStream()
	if err != nil || result != StreamResetPrepareOk {
		h.resetState = ResetStreamNone
		if result == StreamResetPrepareOk {
			result = StreamResetPrepareConsumerError
		}
		return result
	}

	h.resetState = ResetStreamPrepared
	return StreamResetPrepareOk
}

func (h *SessionHistory) abortForPrepareFailureLocked() StreamResetPrepareResult {
	result := StreamResetPrepareConsumerError
	if h.resetStreamHadErr && h.resetStreamLastErr == StreamResetAddOutOfSpace {
		result = StreamResetPrepareOutOfSpace
	}
	h.discardPendingLocked()
	return result
}

// ResolveStreamedReset finalizes a Prepared streamed reset, atomically
// swapping the live log for the pending one. On success it returns the
// number of messages the pending log contained.
func (h *SessionHistory) ResolveStreamedReset() (offset int64, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resetState != ResetStreamPrepared {
		return 0, sessionError("resolve streamed reset: not prepared")
	}

	messageCount, sizeInBytes, rerr := h.backend.ResolveResetStream()
	h.resetState = ResetStreamNone
	if rerr != nil {
		return 0, rerr
	}

	h.sizeInBytes = sizeInBytes
	h.lastResetTime = time.Now().UnixMilli()
	h.firstIndex = h.lastIndex + 1
	h.lastIndex += messageCount
	h.autoResetBaseSize = h.resetStreamSize

	h.notifyLocked()
	return messageCount, nil
}

// AbortStreamedReset cancels an active streamed reset. ctxID of -1 matches
// any active stream regardless of who started it.
func (h *SessionHistory) AbortStreamedReset(ctxID int) StreamResetAbortResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.abortStreamedResetCtxLocked(ctxID)
}

func (h *SessionHistory) abortStreamedResetCtxLocked(ctxID int) StreamResetAbortResult {
	if h.resetState == ResetStreamNone {
		return StreamResetAbortNotActive
	}
	if ctxID != -1 && uint8(ctxID) != h.resetStreamCtxID {
		return StreamResetAbortInvalidUser
	}
	h.discardPendingLocked()
	return StreamResetAbortOk
}

// abortStreamedResetLocked unconditionally discards any active streamed
// reset, regardless of ctx. Used internally by Reset, which must win over
// any in-flight stream.
func (h *SessionHistory) abortStreamedResetLocked() {
	if h.resetState == ResetStreamNone {
		return
	}
	h.discardPendingLocked()
}

func (h *SessionHistory) discardPendingLocked() {
	if h.resetStream != nil {
		h.resetStream.Discard()
		h.resetStream = nil
	}
	_ = h.backend.DiscardResetStream()
	h.resetState = ResetStreamNone
	h.resetStreamCtxID = 0
	h.resetStreamSize = 0
	h.resetStreamMessageCount = 0
	h.resetStreamHadErr = false
}

// ResetState returns the current streamed-reset state.
func (h *SessionHistory) ResetState() ResetStreamState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resetState
}

// StreamedResetDescription returns a diagnostic snapshot of the active
// streamed reset, for an operator "status" command. ok is false when no
// streamed reset is active.
func (h *SessionHistory) StreamedResetDescription() (desc map[string]any, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resetState == ResetStreamNone {
		return nil, false
	}
	return map[string]any{
		"state":         h.resetState.String(),
		"ctxId":         h.resetStreamCtxID,
		"size":          h.resetStreamSize,
		"messageCount":  h.resetStreamMessageCount,
		"startIndex":    h.resetStreamStartIndex,
	}, true
}
