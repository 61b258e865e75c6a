package history

import (
	"bytes"
	"strconv"
	"time"
)

// StartThumbnailGeneration assigns a thumbnail-generation handshake to
// ctxID and returns its correlator, which the client must echo back
// (prefixed onto its rendered bytes) in FinishThumbnailGeneration.
func (h *SessionHistory) StartThumbnailGeneration(ctxID uint8) (ThumbnailStartResult, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ctxID == 0 {
		return ThumbnailStartInvalidUser, ""
	}
	if h.thumbnailCtxID == ctxID {
		return ThumbnailStartAlreadyGenerating, ""
	}

	h.thumbnailCounter++
	correlator := strconv.FormatUint(h.thumbnailCounter, 16) + ":" + strconv.FormatInt(time.Now().UnixMilli(), 16)

	h.thumbnailCtxID = ctxID
	h.thumbnailCorrelator = correlator
	return ThumbnailStartOk, correlator
}

// FinishThumbnailGeneration completes a thumbnail handshake: data must be
// prefixed with the exact correlator bytes StartThumbnailGeneration handed
// out, followed by the rendered image bytes.
func (h *SessionHistory) FinishThumbnailGeneration(ctxID uint8, data []byte) ThumbnailFinishResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.thumbnailCtxID == 0 || ctxID != h.thumbnailCtxID {
		return ThumbnailFinishInvalidUser
	}

	correlator := h.thumbnailCorrelator
	prefix := []byte(correlator)
	if !bytes.HasPrefix(data, prefix) {
		return ThumbnailFinishInvalidCorrelator
	}

	h.thumbnailCtxID = 0
	h.thumbnailCorrelator = ""

	remainder := data[len(prefix):]
	if len(remainder) == 0 {
		return ThumbnailFinishNoData
	}

	if !h.backend.SetThumbnail(remainder) {
		return ThumbnailFinishWriteError
	}
	return ThumbnailFinishOk
}

// CancelThumbnailGeneration clears the pending handshake when ctxID matches
// (or is 0, meaning "any") and correlator matches (or is empty).
func (h *SessionHistory) CancelThumbnailGeneration(ctxID uint8, correlator string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.thumbnailCtxID == 0 {
		return
	}
	if ctxID != 0 && ctxID != h.thumbnailCtxID {
		return
	}
	if correlator != "" && correlator != h.thumbnailCorrelator {
		return
	}

	h.thumbnailCtxID = 0
	h.thumbnailCorrelator = ""
}

// ThumbnailDescription returns a diagnostic snapshot of the active
// thumbnail handshake, for an operator "status" command.
func (h *SessionHistory) ThumbnailDescription() (desc map[string]any, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.thumbnailCtxID == 0 {
		return nil, false
	}
	return map[string]any{
		"ctxId":      h.thumbnailCtxID,
		"correlator": h.thumbnailCorrelator,
	}, true
}

// HasThumbnail reports whether a thumbnail has been stored.
func (h *SessionHistory) HasThumbnail() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.backend.HasThumbnail()
}

// ThumbnailGeneratedAt returns when the stored thumbnail was produced.
func (h *SessionHistory) ThumbnailGeneratedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.backend.ThumbnailGeneratedAt()
}
