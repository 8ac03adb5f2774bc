package domain

import "time"

// Role is the authorization level carried by a user record and its tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// User models a registered account. Records are immutable once created.
type User struct {
	ID           string    `json:"-"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// SessionClaim is what a bearer token asserts about its holder.
type SessionClaim struct {
	Subject string `json:"username"`
	Role    Role   `json:"role"`
}
