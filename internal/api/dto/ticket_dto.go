package dto

import (
	"time"

	"github.com/firelater/itsm-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Kind        domain.TicketKind     `json:"kind"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    *string               `json:"category"`
	Impact      *string               `json:"impact"`
	Urgency     *string               `json:"urgency"`
	ProblemType *string               `json:"problem_type"`
}

// UpdateTicketRequest carries optional field edits.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Category    *string                `json:"category"`
	Impact      *string                `json:"impact"`
	Urgency     *string                `json:"urgency"`
	ProblemType *string                `json:"problem_type"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status     domain.TicketStatus `json:"status"`
	Reason     *string             `json:"reason"`
	Resolution *string             `json:"resolution"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
	GroupID    *string `json:"group_id"`
}

// RootCauseRequest payload.
type RootCauseRequest struct {
	RootCause string `json:"root_cause"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	Kind            domain.TicketKind     `json:"kind"`
	Title           string                `json:"title"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	AssigneeID      *string               `json:"assignee_id,omitempty"`
	SLABreached     bool                  `json:"sla_breached"`
	EscalationLevel int                   `json:"escalation_level"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description           string                  `json:"description"`
	Category              *string                 `json:"category,omitempty"`
	Impact                *string                 `json:"impact,omitempty"`
	Urgency               *string                 `json:"urgency,omitempty"`
	ProblemType           *string                 `json:"problem_type,omitempty"`
	ReporterID            string                  `json:"reporter_id"`
	AssigneeGroupID       *string                 `json:"assignee_group_id,omitempty"`
	SLAPolicyID           *string                 `json:"sla_policy_id,omitempty"`
	ResponseDueAt         *time.Time              `json:"response_due_at,omitempty"`
	ResolutionDueAt       *time.Time              `json:"resolution_due_at,omitempty"`
	FirstResponseAt       *time.Time              `json:"first_response_at,omitempty"`
	Resolution            *string                 `json:"resolution,omitempty"`
	ResolvedAt            *time.Time              `json:"resolved_at,omitempty"`
	RootCause             *string                 `json:"root_cause,omitempty"`
	RootCauseIdentifiedAt *time.Time              `json:"root_cause_identified_at,omitempty"`
	IsKnownError          bool                    `json:"is_known_error"`
	ClosedAt              *time.Time              `json:"closed_at,omitempty"`
	AllowedTransitions    []domain.TicketStatus   `json:"allowed_transitions"`
	History               []StatusHistoryResponse `json:"history"`
}

// StatusHistoryResponse is one transition row.
type StatusHistoryResponse struct {
	ID         string               `json:"id"`
	FromStatus *domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus  `json:"to_status"`
	ActorID    string               `json:"actor_id"`
	Reason     *string              `json:"reason,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}
