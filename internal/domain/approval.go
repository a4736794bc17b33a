package domain

import "time"

// ApprovalStepKind enumerates chain step types.
type ApprovalStepKind string

const (
	StepKindUser        ApprovalStepKind = "USER"
	StepKindGroup       ApprovalStepKind = "GROUP"
	StepKindConditional ApprovalStepKind = "CONDITIONAL"
)

// ApprovalChain is an ordered set of steps governing a multi-step approval.
// Steps sharing an Order value are parallel siblings.
type ApprovalChain struct {
	ID        string
	Name      string
	Steps     []*ApprovalChainStep
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApprovalChainStep is one step of a chain. For USER steps AssigneeUserID is
// set, for GROUP steps AssigneeGroupID, for CONDITIONAL steps Condition plus
// the branch targets.
type ApprovalChainStep struct {
	ID              string
	Kind            ApprovalStepKind
	Order           int
	AssigneeUserID  *string
	AssigneeGroupID *string
	Condition       *string
	NextStepID      *string
	ElseStepID      *string
}

// ApprovalRecord is the immutable outcome of one approval action on a step.
type ApprovalRecord struct {
	ID        string
	ChainID   string
	TicketID  *string
	StepID    string
	Approved  bool
	ActorID   string
	Comments  *string
	CreatedAt time.Time
}
