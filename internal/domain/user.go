package domain

import "time"

// UserRole is the authorization role carried by a user's token.
type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"
)

// User represents a rider profile.
type User struct {
	ID                  string
	Name                string
	Email               string
	Bio                 string
	PreferredDifficulty Difficulty
	Role                UserRole
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
