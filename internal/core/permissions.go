package core

import (
	"encoding/json"
	"sort"
)

const (
	PermissionRead PermissionLevel = "read"
	PermissionEdit PermissionLevel = "edit"
)

// Effective access levels, ordered from weakest to strongest.
const (
	AccessNone Access = iota
	AccessRead
	AccessEdit
	AccessOwner
)

type (
	PermissionLevel string

	// Access is the effective level a user holds on an account.
	Access int

	// Permissions maps a grantee to the level granted on an account.
	// The map keys make "one entry per user" hold by construction.
	Permissions map[ID]PermissionLevel

	// PermissionEntry is the serialized form of one grant.
	PermissionEntry struct {
		UserID ID              `json:"user_id"`
		Level  PermissionLevel `json:"permission_level"`
	}
)

func (l PermissionLevel) Validate() error {
	switch l {
	case PermissionRead, PermissionEdit:
		return nil
	}
	return ErrInvalidPermission
}

func (l PermissionLevel) access() Access {
	switch l {
	case PermissionEdit:
		return AccessEdit
	case PermissionRead:
		return AccessRead
	}
	return AccessNone
}

func (a Access) String() string {
	switch a {
	case AccessOwner:
		return "owner"
	case AccessEdit:
		return "edit"
	case AccessRead:
		return "read"
	}
	return "none"
}

func (a Access) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// AccessFor returns the effective access of userID on the account.
func (a Account) AccessFor(userID ID) Access {
	if userID == "" {
		return AccessNone
	}
	if a.OwnerID == userID {
		return AccessOwner
	}
	return a.Permissions[userID].access()
}

// Resolve returns nil when userID holds at least the required level on the
// account. The owner passes every check; edit implies read.
func (a Account) Resolve(userID ID, required PermissionLevel) error {
	have := a.AccessFor(userID)
	switch {
	case have == AccessNone:
		return ErrNoAccess
	case have < required.access():
		return ErrInsufficientPermission
	}
	return nil
}

// ResolveOwner returns nil only for the account owner.
func (a Account) ResolveOwner(userID ID) error {
	if a.AccessFor(userID) != AccessOwner {
		return ErrNotOwner
	}
	return nil
}

// Clone returns an independent copy of p. It never returns nil.
func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// With returns a copy of p where userID holds level, replacing any previous grant.
func (p Permissions) With(userID ID, level PermissionLevel) Permissions {
	out := p.Clone()
	out[userID] = level
	return out
}

// Without returns a copy of p with any grant for userID removed.
func (p Permissions) Without(userID ID) Permissions {
	out := make(Permissions, len(p))
	for k, v := range p {
		if k != userID {
			out[k] = v
		}
	}
	return out
}

func (p Permissions) Validate() error {
	for userID, level := range p {
		if userID == "" {
			return ErrInvalidID
		}
		if err := level.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the grants sorted by user id.
func (p Permissions) Entries() []PermissionEntry {
	out := make([]PermissionEntry, 0, len(p))
	for userID, level := range p {
		out = append(out, PermissionEntry{UserID: userID, Level: level})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// PermissionsFromEntries builds the map form. Later duplicates win.
func PermissionsFromEntries(entries []PermissionEntry) Permissions {
	out := make(Permissions, len(entries))
	for _, e := range entries {
		out[e.UserID] = e.Level
	}
	return out
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Entries())
}

func (p *Permissions) UnmarshalJSON(data []byte) error {
	var entries []PermissionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*p = PermissionsFromEntries(entries)
	return nil
}
