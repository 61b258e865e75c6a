package history

import "sort"

// Banner describes the operator who issued a ban, when known.
type Banner struct {
	Username string
	AuthID   string
	IP       string
	SID      string
}

// Ban is a single session ban record. Ids are assigned monotonically by the
// owning BanList and are never reused within a session's lifetime.
type Ban struct {
	ID        int
	Username  string
	IP        string
	ExtAuthID string
	SID       string
	BannedBy  string
	Banner    *Banner
}

// banKey is the dedup key addBan uses to reject duplicate entries.
type banKey struct {
	username, ip, extAuthID, sid string
}

// BanList is an ordered, addressable set of session bans.
type BanList struct {
	nextID int
	byID   map[int]Ban
	byKey  map[banKey]int
}

// NewBanList constructs an empty BanList.
func NewBanList() *BanList {
	return &BanList{
		nextID: 1,
		byID:   make(map[int]Ban),
		byKey:  make(map[banKey]int),
	}
}

// AddBan records a new ban and returns its id, or 0 if an identical
// (username, ip, extAuthId, sid) entry already exists.
func (b *BanList) AddBan(username, ip, extAuthID, sid, bannedBy string, banner *Banner) int {
	key := banKey{username, ip, extAuthID, sid}
	if _, exists := b.byKey[key]; exists {
		return 0
	}

	id := b.nextID
	b.nextID++

	b.byID[id] = Ban{
		ID:        id,
		Username:  username,
		IP:        ip,
		ExtAuthID: extAuthID,
		SID:       sid,
		BannedBy:  bannedBy,
		Banner:    banner,
	}
	b.byKey[key] = id
	return id
}

// RemoveBan removes the ban with the given id and returns its username, or
// "" if no such ban exists.
func (b *BanList) RemoveBan(id int) string {
	ban, ok := b.byID[id]
	if !ok {
		return ""
	}
	delete(b.byID, id)
	delete(b.byKey, banKey{ban.Username, ban.IP, ban.ExtAuthID, ban.SID})
	return ban.Username
}

// Get returns the ban with the given id.
func (b *BanList) Get(id int) (Ban, bool) {
	ban, ok := b.byID[id]
	return ban, ok
}

// List returns all bans ordered by id (ascending, i.e. insertion order).
func (b *BanList) List() []Ban {
	out := make([]Ban, 0, len(b.byID))
	for _, ban := range b.byID {
		out = append(out, ban)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BanImportEntry is one record of an imported ban list.
type BanImportEntry struct {
	Username  string
	IP        string
	ExtAuthID string
	SID       string
	BannedBy  string
	Banner    *Banner
}

// ImportBans applies entries in order, invoking onImported for each one
// actually added (duplicates are silently skipped, matching AddBan). It
// returns the total number of entries presented and the number imported.
func (b *BanList) ImportBans(entries []BanImportEntry, onImported func(Ban)) (total, imported int) {
	total = len(entries)
	for _, e := range entries {
		id := b.AddBan(e.Username, e.IP, e.ExtAuthID, e.SID, e.BannedBy, e.Banner)
		if id == 0 {
			continue
		}
		imported++
		if onImported != nil {
			onImported(b.byID[id])
		}
	}
	return total, imported
}
