package domain

// Role is the coarse permission level granted by the identity service.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// CanEdit reports whether the role may mutate tickets and suppliers.
func (r Role) CanEdit() bool {
	return r == RoleEditor || r == RoleAdmin
}

// Actor identifies the person on whose behalf an operation runs.
// The engine trusts whatever the caller supplies here.
type Actor struct {
	ID       string
	Name     string
	Role     Role
	Approved bool
}
