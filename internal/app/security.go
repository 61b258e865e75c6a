package app

import (
	"errors"

	"canvasd/internal/token"
)

// ValidateSecurityConfig enforces canvasd's security policy at startup.
//
// Fail-fast is intentional: silently falling back to weaker hashing in
// production is unacceptable. Enforcement is end-to-end by validating the
// same module that performs hashing (internal/token).
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireFieldHMAC {
		return nil
	}

	// Minimum 32 bytes recommended for HMAC-SHA256 secret, measured in bytes
	// (not runes) since the key is used as raw bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: CANVASD_REQUIRE_FIELD_HMAC=true but CANVASD_FIELD_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: CANVASD_REQUIRE_FIELD_HMAC=true but CANVASD_FIELD_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: CANVASD_REQUIRE_FIELD_HMAC=true but field hasher is not in HMAC mode")
	}

	return nil
}
