package models

// Role is the self-declared role of the current actor.
type Role string

const (
	RoleFarmer  Role = "farmer"
	RoleBuyer   Role = "buyer"
	RoleVisitor Role = "visitor"
)

// GuestName is used wherever an actor is required but nobody has signed in.
const GuestName = "Guest"

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleBuyer, RoleVisitor:
		return true
	}
	return false
}

// CanOwnListing reports whether a listing may carry r as its owner role.
func (r Role) CanOwnListing() bool {
	return r == RoleFarmer || r == RoleBuyer
}

// SessionIdentity is the locally declared actor. It is not verified.
type SessionIdentity struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// DisplayName returns the identity's name, or GuestName for a nil or unnamed identity.
func (s *SessionIdentity) DisplayName() string {
	if s == nil || s.Name == "" {
		return GuestName
	}
	return s.Name
}

// IsBuyer reports whether s is a declared buyer with a name.
func (s *SessionIdentity) IsBuyer() bool {
	return s != nil && s.Name != "" && s.Role == RoleBuyer
}
