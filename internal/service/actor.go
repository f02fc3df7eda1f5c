package service

// Role is the coarse authorization level resolved by the external auth
// layer and passed in with each request.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Actor identifies the caller of an operation. Identity resolution happens
// outside this service; the core only checks ownership and role.
type Actor struct {
	UserID string
	Role   Role
}

// Moderator reports whether the actor may perform moderation actions.
func (a Actor) Moderator() bool {
	return a.Role == RoleModerator || a.Role == RoleAdmin
}
