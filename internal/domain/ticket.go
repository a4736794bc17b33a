package domain

import (
	"strings"
	"time"
)

// TicketKind distinguishes the two lifecycle-managed entity kinds.
type TicketKind string

const (
	KindIssue   TicketKind = "ISSUE"
	KindProblem TicketKind = "PROBLEM"
)

// TicketStatus enumerates lifecycle states across both kinds. Which values
// are legal for a given ticket depends on its kind; see the workflow package.
type TicketStatus string

const (
	StatusNew                 TicketStatus = "NEW"
	StatusAssigned            TicketStatus = "ASSIGNED"
	StatusInProgress          TicketStatus = "IN_PROGRESS"
	StatusPending             TicketStatus = "PENDING"
	StatusInvestigating       TicketStatus = "INVESTIGATING"
	StatusRootCauseIdentified TicketStatus = "ROOT_CAUSE_IDENTIFIED"
	StatusKnownError          TicketStatus = "KNOWN_ERROR"
	StatusResolved            TicketStatus = "RESOLVED"
	StatusClosed              TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	PriorityLow      TicketPriority = "LOW"
	PriorityMedium   TicketPriority = "MEDIUM"
	PriorityHigh     TicketPriority = "HIGH"
	PriorityCritical TicketPriority = "CRITICAL"
)

// Ticket is the aggregate for Issues and Problems. One struct carries both
// kinds; kind-specific fields are pointers and stay nil for the other kind.
type Ticket struct {
	ID          string
	Number      string
	Kind        TicketKind
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Category    *string

	// Issue classification.
	Impact  *string
	Urgency *string
	// Problem classification.
	ProblemType *string

	ReporterID      string
	AssigneeID      *string
	AssigneeGroupID *string

	SLAPolicyID     *string
	ResponseDueAt   *time.Time
	ResolutionDueAt *time.Time
	SLABreached     bool

	EscalationLevel int
	EscalatedAt     *time.Time

	FirstResponseAt     *time.Time
	ResponseTimeMinutes *int

	Resolution            *string
	ResolvedAt            *time.Time
	ResolvedByID          *string
	ResolutionTimeMinutes *int

	// Problem root-cause tracking. Resolving or closing a Problem requires
	// RootCause non-blank and RootCauseIdentifiedAt set.
	RootCause             *string
	RootCauseIdentifiedAt *time.Time
	IsKnownError          bool
	KnownErrorSince       *time.Time

	ClosedAt   *time.Time
	ClosedByID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InitialStatus returns the creation status for a kind.
func (k TicketKind) InitialStatus() TicketStatus {
	return StatusNew
}

// NumberPrefix returns the human-readable sequence prefix for a kind.
func (k TicketKind) NumberPrefix() string {
	if k == KindProblem {
		return "PRB"
	}
	return "INC"
}

// HasIdentifiedRootCause reports whether a non-blank root cause and its
// identification timestamp have both been recorded.
func (t *Ticket) HasIdentifiedRootCause() bool {
	return t.RootCause != nil && strings.TrimSpace(*t.RootCause) != "" && t.RootCauseIdentifiedAt != nil
}
