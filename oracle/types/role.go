package types

// Role is a permission a caller may hold.
type Role string

const (
	RoleFeeder     Role = "feeder"
	RoleAdmin      Role = "admin"
	RoleController Role = "controller"
	RoleOwner      Role = "owner"
)

// String cast role to string.
func (r Role) String() string {
	return string(r)
}

// IsOnChain reports whether the role is held by an address recorded on-chain
// rather than in configuration.
func (r Role) IsOnChain() bool {
	return r == RoleController || r == RoleOwner
}
