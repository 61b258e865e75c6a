package token

import "errors"

// Public, stable errors for callers.
var (
	ErrHMACKeyMissing  = errors.New("field HMAC key missing")
	ErrHMACKeyTooShort = errors.New("field HMAC key too short")
)
