package domain

import "time"

// UserRole scopes what a principal may do within a tenant.
type UserRole string

const (
	RoleRequester UserRole = "REQUESTER"
	RoleAgent     UserRole = "AGENT"
	RoleAdmin     UserRole = "ADMIN"
)

// User is a tenant-scoped account (requester, agent, or admin).
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         UserRole
	GroupIDs     []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
