// Package token provides keyed-hashing primitives used to store ban and
// invite identifying fields (IP addresses, external auth ids) at rest
// without retaining the raw value in the log or database.
//
// Design goals:
// - Default dev/back-compat mode: SHA-256(value) when no HMAC key is configured.
// - Production-enforced mode: HMAC-SHA256(value, key) when policy requires it.
// - Stable 64-char hex output for storage and constant-time comparison.
//
// Environment:
// - CANVASD_FIELD_HMAC_KEY: when set, enables HMAC mode.
// Policy:
//   - If RequireFieldHMAC=true, callers MUST enforce a minimum key size (>= 32 bytes)
//     and MUST use HMAC (no SHA fallback).
package token
