package domain

// Role is the role a user was registered with.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Roles lists the roles a user can register with, in picker order.
var Roles = []Role{RoleUser, RoleAdmin}

// ValidRole returns true if r is a known role.
func ValidRole(r Role) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is the backend's user record as exposed to the dashboard.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
}

// Profile is the editable part of the authenticated user.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}
