package dto

import (
	"time"

	"github.com/firelater/itsm-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Tenant   string          `json:"tenant"`
	Email    string          `json:"email"`
	FullName string          `json:"full_name"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

// LoginRequest payload.
type LoginRequest struct {
	Tenant   string `json:"tenant"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the bearer token.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse mirrors an account.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name"`
	Role      domain.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

// SLAPolicyRequest creates a policy with targets.
type SLAPolicyRequest struct {
	Name       string             `json:"name"`
	EntityType domain.TicketKind  `json:"entity_type"`
	IsDefault  bool               `json:"is_default"`
	Targets    []SLATargetRequest `json:"targets"`
}

// SLATargetRequest is one priority/metric target.
type SLATargetRequest struct {
	Priority      domain.TicketPriority `json:"priority"`
	Metric        domain.SLAMetric      `json:"metric"`
	TargetMinutes int                   `json:"target_minutes"`
}
