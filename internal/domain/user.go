package domain

import "time"

// Role enumerates the fixed set of actor roles.
type Role string

const (
	RoleClient    Role = "client"
	RoleDeveloper Role = "developer"
	RoleQA        Role = "qa"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleClient, RoleDeveloper, RoleQA, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// User is the domain model for every actor: clients who file tickets,
// developers who work them, QA who triage and close them, and admins.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
