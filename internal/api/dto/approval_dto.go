package dto

import (
	"time"

	"github.com/firelater/itsm-service/internal/domain"
)

// CreateChainRequest payload.
type CreateChainRequest struct {
	Name  string             `json:"name"`
	Steps []ChainStepRequest `json:"steps"`
}

// ChainStepRequest is one authored step.
type ChainStepRequest struct {
	ID              string                  `json:"id"`
	Kind            domain.ApprovalStepKind `json:"kind"`
	Order           int                     `json:"order"`
	AssigneeUserID  *string                 `json:"assignee_user_id"`
	AssigneeGroupID *string                 `json:"assignee_group_id"`
	Condition       *string                 `json:"condition"`
	NextStepID      *string                 `json:"next_step_id"`
	ElseStepID      *string                 `json:"else_step_id"`
}

// ApprovalActionRequest records an approve/reject.
type ApprovalActionRequest struct {
	StepID   string  `json:"step_id"`
	Approved bool    `json:"approved"`
	Comments *string `json:"comments"`
	TicketID *string `json:"ticket_id"`
}

// DelegateRequest reassigns a pending user step.
type DelegateRequest struct {
	StepID     string `json:"step_id"`
	DelegateID string `json:"delegate_id"`
}

// ChainStepResponse mirrors a step.
type ChainStepResponse struct {
	ID              string                  `json:"id"`
	Kind            domain.ApprovalStepKind `json:"kind"`
	Order           int                     `json:"order"`
	AssigneeUserID  *string                 `json:"assignee_user_id,omitempty"`
	AssigneeGroupID *string                 `json:"assignee_group_id,omitempty"`
	Condition       *string                 `json:"condition,omitempty"`
	NextStepID      *string                 `json:"next_step_id,omitempty"`
	ElseStepID      *string                 `json:"else_step_id,omitempty"`
}

// ChainResponse mirrors a chain definition.
type ChainResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Steps     []ChainStepResponse `json:"steps"`
	CreatedAt time.Time           `json:"created_at"`
}

// DecisionResponse reports the chain state after an action or resolution.
type DecisionResponse struct {
	State    string             `json:"state"`
	NextStep *ChainStepResponse `json:"next_step,omitempty"`
}
