package history

import (
	"sort"
	"time"

	"canvasd/internal/ids"
)

// InviteUse records one client's consumption of an invite secret.
type InviteUse struct {
	Name string
	At   string
}

// MarshalSID returns the sid to embed in a JSON invite-use record. This
// reproduces the upstream predicate verbatim: the stored sid is emitted
// only when the caller-supplied sid argument is itself empty. That reads
// backwards, and is almost certainly a bug in the system this was ported
// from, but the behavior is left unchanged rather than "fixed" on a guess.
func (u InviteUse) MarshalSID(sid, storedSID string) (string, bool) {
	if sid != "" {
		return "", false
	}
	return storedSID, true
}

// Invite is a single outstanding session invite.
type Invite struct {
	Secret    string
	Creator   string
	At        string
	MaxUses   int
	Trust     bool
	Op        bool
	Uses      map[string]InviteUse
	SessionID string
}

// HasUsesRemaining reports whether another distinct client key may still
// consume this invite.
func (inv *Invite) HasUsesRemaining() bool {
	return len(inv.Uses) < inv.MaxUses
}

// InviteStore is the keyed set of invites for one session, with per-client
// usage tracking. It is not safe for concurrent use; callers serialize
// access (see SessionHistory).
type InviteStore struct {
	maxInvites    int
	maxInviteUses int
	now           func() time.Time

	bySecret map[string]*Invite
}

// NewInviteStore constructs an InviteStore bounded by maxInvites total
// invites and maxInviteUses uses per invite.
func NewInviteStore(maxInvites, maxInviteUses int) *InviteStore {
	return &InviteStore{
		maxInvites:    maxInvites,
		maxInviteUses: maxInviteUses,
		now:           func() time.Time { return time.Now().UTC() },
		bySecret:      make(map[string]*Invite),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CreateInvite allocates a new invite, or returns (nil, false) if the store
// is already at capacity. maxUses is clamped into [1, maxInviteUses].
func (s *InviteStore) CreateInvite(createdBy string, maxUses int, trust, op bool) (*Invite, bool) {
	if len(s.bySecret) >= s.maxInvites {
		return nil, false
	}

	maxUses = clampInt(maxUses, 1, s.maxInviteUses)

	var secret string
	for attempt := 0; attempt < 8; attempt++ {
		candidate, err := ids.InviteSecret(8)
		if err != nil {
			return nil, false
		}
		if _, exists := s.bySecret[candidate]; !exists {
			secret = candidate
			break
		}
	}
	if secret == "" {
		return nil, false
	}

	inv := &Invite{
		Secret:  secret,
		Creator: createdBy,
		At:      s.now().Format(time.RFC3339Nano),
		MaxUses: maxUses,
		Trust:   trust,
		Op:      op,
		Uses:    make(map[string]InviteUse),
	}
	s.bySecret[secret] = inv
	return inv, true
}

// RemoveInvite deletes the invite with the given secret, reporting whether
// it existed.
func (s *InviteStore) RemoveInvite(secret string) bool {
	if _, ok := s.bySecret[secret]; !ok {
		return false
	}
	delete(s.bySecret, secret)
	return true
}

// RemoveOldestInvite removes the invite whose "at" timestamp sorts
// lexicographically smallest (i.e. chronologically oldest, since the
// timestamps are ISO-8601). Ties are broken by secret so the outcome is
// deterministic regardless of map iteration order.
func (s *InviteStore) RemoveOldestInvite() (bool, string) {
	if len(s.bySecret) == 0 {
		return false, ""
	}

	secrets := make([]string, 0, len(s.bySecret))
	for secret := range s.bySecret {
		secrets = append(secrets, secret)
	}
	sort.Slice(secrets, func(i, j int) bool {
		a, b := s.bySecret[secrets[i]], s.bySecret[secrets[j]]
		if a.At != b.At {
			return a.At < b.At
		}
		return secrets[i] < secrets[j]
	})

	oldest := secrets[0]
	delete(s.bySecret, oldest)
	return true, oldest
}

// CheckInvite validates (and optionally records) a client's use of an
// invite secret. use=false performs a dry-run probe; use=true records the
// usage when capacity remains.
func (s *InviteStore) CheckInvite(clientKey, name, secret string, use bool) CheckInviteResult {
	if clientKey == "" {
		return CheckInviteNoClientKey
	}

	inv, ok := s.bySecret[secret]
	if !ok {
		return CheckInviteNotFound
	}

	if existing, already := inv.Uses[clientKey]; already {
		if !use || existing.Name == name {
			return CheckInviteAlreadyInvited
		}
		existing.Name = name
		existing.At = s.now().Format(time.RFC3339Nano)
		inv.Uses[clientKey] = existing
		return CheckInviteAlreadyInvitedNameChanged
	}

	if !inv.HasUsesRemaining() {
		return CheckInviteMaxUsesReached
	}

	if use {
		inv.Uses[clientKey] = InviteUse{Name: name, At: s.now().Format(time.RFC3339Nano)}
		return CheckInviteUsed
	}
	return CheckInviteOk
}

// Get returns the invite with the given secret.
func (s *InviteStore) Get(secret string) (*Invite, bool) {
	inv, ok := s.bySecret[secret]
	return inv, ok
}

// Len returns the number of outstanding invites.
func (s *InviteStore) Len() int { return len(s.bySecret) }

// List returns all invites ordered by "at" ascending.
func (s *InviteStore) List() []*Invite {
	out := make([]*Invite, 0, len(s.bySecret))
	for _, inv := range s.bySecret {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At < out[j].At
		}
		return out[i].Secret < out[j].Secret
	})
	return out
}
