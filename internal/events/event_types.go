package events

import (
	"time"

	"github.com/firelater/itsm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventSLABreached         EventType = "sla_breached"
	EventApprovalRecorded    EventType = "approval_recorded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Tenant    string      `json:"tenant"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number          string                `json:"number"`
	Kind            domain.TicketKind     `json:"kind"`
	Priority        domain.TicketPriority `json:"priority"`
	Title           string                `json:"title"`
	ResponseDueAt   *time.Time            `json:"response_due_at,omitempty"`
	ResolutionDueAt *time.Time            `json:"resolution_due_at,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
	GroupID    *string `json:"group_id,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalationLevel int `json:"escalation_level"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Metric domain.SLAMetric `json:"metric"`
	DueAt  time.Time        `json:"due_at"`
}

// ApprovalRecordedPayload payload.
type ApprovalRecordedPayload struct {
	ChainID    string  `json:"chain_id"`
	StepID     string  `json:"step_id"`
	Approved   bool    `json:"approved"`
	NextStepID *string `json:"next_step_id,omitempty"`
}
