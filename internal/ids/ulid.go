// Package ids provides the identifier primitives shared across the session
// history engine: session ids, envelope ids, and short invite secrets.
package ids

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a new ULID string (26 chars), lexicographically sortable by
// creation time. Used for session ids and envelope/server-message ids.
func New(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// inviteSecretAlphabet avoids visually confusable characters (0/O, 1/I/L).
var inviteSecretEncoding = base32.NewEncoding("23456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// InviteSecret returns a short random token suitable for an invite link.
// Collisions are the caller's responsibility to detect and retry.
func InviteSecret(n int) (string, error) {
	if n <= 0 {
		n = 8
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToLower(inviteSecretEncoding.EncodeToString(buf))[:n], nil
}
