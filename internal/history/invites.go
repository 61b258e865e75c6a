package history

// CreateInvite allocates a new invite for the session, or returns
// (nil, false) if the session is already at its invite capacity.
func (h *SessionHistory) CreateInvite(createdBy string, maxUses int, trust, op bool) (*Invite, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inv, ok := h.invites.CreateInvite(createdBy, maxUses, trust, op)
	if ok {
		inv.SessionID = h.id
	}
	return inv, ok
}

// RemoveInvite deletes the invite with the given secret.
func (h *SessionHistory) RemoveInvite(secret string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invites.RemoveInvite(secret)
}

// RemoveOldestInvite removes the chronologically oldest outstanding invite.
func (h *SessionHistory) RemoveOldestInvite() (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invites.RemoveOldestInvite()
}

// CheckInvite validates (and optionally records) a client's use of an
// invite secret.
func (h *SessionHistory) CheckInvite(clientKey, name, secret string, use bool) CheckInviteResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invites.CheckInvite(clientKey, name, secret, use)
}

// Invite returns the invite with the given secret.
func (h *SessionHistory) Invite(secret string) (*Invite, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invites.Get(secret)
}

// Invites returns a snapshot of all outstanding invites ordered oldest-first.
func (h *SessionHistory) Invites() []*Invite {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invites.List()
}

// InviteCount returns the number of outstanding invites.
func (h *SessionHistory) InviteCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invites.Len()
}
