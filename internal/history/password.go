package history

import "canvasd/internal/password"

// passwordHasher is package-level so SessionHistory stays a plain value
// type for hashing config purposes; callers needing non-default Argon2id
// parameters should hash externally and use SetPasswordHash instead.
var passwordHasher = password.DefaultConfig()

// SetPassword hashes and stores plain as the session's join password.
// Passing "" clears the password (no password required to join).
func (h *SessionHistory) SetPassword(plain string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if plain == "" {
		h.password = ""
		return nil
	}

	hash, err := passwordHasher.Hash(plain)
	if err != nil {
		return err
	}
	h.password = hash
	return nil
}

// SetPasswordHash stores an already-hashed session join password verbatim.
func (h *SessionHistory) SetPasswordHash(hash string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.password = hash
}

// HasPassword reports whether the session currently requires a join
// password.
func (h *SessionHistory) HasPassword() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.password != ""
}

// VerifyPassword checks plain against the stored session join password. It
// always returns true when no password is set.
func (h *SessionHistory) VerifyPassword(plain string) (bool, error) {
	h.mu.Lock()
	hash := h.password
	h.mu.Unlock()

	if hash == "" {
		return true, nil
	}
	return passwordHasher.Verify(hash, plain)
}
