package history

// SetOp grants or revokes operator privilege for an authenticated identity.
func (h *SessionHistory) SetOp(authID string, op bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.auth.SetOp(authID, op)
}

// IsOp reports whether authID currently holds operator privilege.
func (h *SessionHistory) IsOp(authID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.auth.IsOp(authID)
}

// SetTrusted grants or revokes the trusted flag for an authenticated identity.
func (h *SessionHistory) SetTrusted(authID string, trusted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.auth.SetTrusted(authID, trusted)
}

// IsTrusted reports whether authID currently holds the trusted flag.
func (h *SessionHistory) IsTrusted(authID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.auth.IsTrusted(authID)
}

// SetUsername records the canonical username for an authenticated identity.
func (h *SessionHistory) SetUsername(authID, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.auth.SetUsername(authID, username)
}

// Username returns the canonical username for an authenticated identity.
func (h *SessionHistory) Username(authID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.auth.Username(authID)
}
