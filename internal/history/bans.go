package history

// AddBan records a new ban, persists it via the backend's ban-log trail,
// and returns its id (or 0 for a duplicate entry).
func (h *SessionHistory) AddBan(username, ip, extAuthID, sid, bannedBy string, banner *Banner) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.bans.AddBan(username, ip, extAuthID, sid, bannedBy, banner)
	if id == 0 {
		return 0
	}
	_ = h.backend.HistoryAddBan(id, username, ip, extAuthID, sid, bannedBy)
	return id
}

// RemoveBan removes the ban with the given id, returning its username (""
// if absent).
func (h *SessionHistory) RemoveBan(id int) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	username := h.bans.RemoveBan(id)
	if username == "" {
		return ""
	}
	_ = h.backend.HistoryRemoveBan(id)
	return username
}

// Bans returns a snapshot of all bans ordered by id.
func (h *SessionHistory) Bans() []Ban {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bans.List()
}

// ImportBans applies a batch of ban records, persisting each accepted entry
// via the backend. It returns the total number of entries presented and the
// number actually imported (duplicates are skipped, not counted as errors).
func (h *SessionHistory) ImportBans(entries []BanImportEntry) (total, imported int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.bans.ImportBans(entries, func(ban Ban) {
		_ = h.backend.HistoryAddBan(ban.ID, ban.Username, ban.IP, ban.ExtAuthID, ban.SID, ban.BannedBy)
	})
}
