package models

// Role is a per-library permission level. Roles form a total order so that
// escalation checks reduce to a single level comparison.
type Role string

const (
	RoleNone  Role = ""
	RoleRead  Role = "read"
	RoleWrite Role = "write"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

var roleLevels = map[Role]int{
	RoleNone:  0,
	RoleRead:  1,
	RoleWrite: 2,
	RoleAdmin: 3,
	RoleOwner: 4,
}

// Level returns the position of the role in the ordering. Unknown roles are
// treated as none.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether the role grants everything other grants.
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

// Below reports whether the role is strictly less than other.
func (r Role) Below(other Role) bool {
	return r.Level() < other.Level()
}

// Valid reports whether the role names a real permission level.
func (r Role) Valid() bool {
	switch r {
	case RoleRead, RoleWrite, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}
