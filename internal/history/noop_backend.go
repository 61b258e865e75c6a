package history

import "time"

// nopBackend is the zero-configuration Backend: everything succeeds and
// nothing is actually persisted. Used when SessionHistory is constructed
// without an explicit backend (tests, or a deployment that accepts
// memory-only history).
type nopBackend struct {
	pending []Message
}

func (b *nopBackend) HistoryAdd(Message) error                 { return nil }
func (b *nopBackend) HistoryReset([]Message) error              { return nil }
func (b *nopBackend) HistoryLoaded(uint, int64) error           { return nil }
func (b *nopBackend) HistoryAddBan(int, string, string, string, string, string) error {
	return nil
}
func (b *nopBackend) HistoryRemoveBan(int) error { return nil }

func (b *nopBackend) OpenResetStream(seed []Message) (StreamResetStartResult, error) {
	b.pending = append([]Message{}, seed...)
	return StreamResetStartOk, nil
}

func (b *nopBackend) AddResetStreamMessage(msg Message) (StreamResetAddResult, error) {
	b.pending = append(b.pending, msg)
	return StreamResetAddOk, nil
}

func (b *nopBackend) PrepareResetStream() (StreamResetPrepareResult, error) {
	return StreamResetPrepareOk, nil
}

func (b *nopBackend) ResolveResetStream() (int64, uint, error) {
	var size uint
	for _, m := range b.pending {
		size += m.Length()
	}
	count := int64(len(b.pending))
	b.pending = nil
	return count, size, nil
}

func (b *nopBackend) DiscardResetStream() error {
	b.pending = nil
	return nil
}

func (b *nopBackend) HasThumbnail() bool                { return false }
func (b *nopBackend) ThumbnailGeneratedAt() time.Time    { return time.Time{} }
func (b *nopBackend) SetThumbnail(data []byte) bool      { return true }
func (b *nopBackend) OverrideSizeLimit() uint            { return 0 }
func (b *nopBackend) AutoResetThreshold() uint           { return 0 }
