package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/firelater/itsm-service/internal/cache"
	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/events"
	"github.com/firelater/itsm-service/internal/repository"
	"github.com/firelater/itsm-service/internal/workflow"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

// ChainState describes a chain's outcome after folding its records.
type ChainState string

const (
	ChainStatePending  ChainState = "PENDING"
	ChainStateApproved ChainState = "APPROVED"
	ChainStateRejected ChainState = "REJECTED"
)

// ApprovalDecision is returned after recording an action: the terminal
// state if any, and the next actionable step otherwise.
type ApprovalDecision struct {
	State    ChainState
	NextStep *domain.ApprovalChainStep
}

// ApprovalService records approval actions and re-resolves the chain. The
// resolver itself is pure; this service owns the I/O around it. Records are
// written exactly once and never edited; re-resolution folds the full
// record list against the chain definition.
type ApprovalService struct {
	store       TxStore
	repos       repository.Repositories
	clock       workflow.Clock
	evaluator   workflow.ConditionEvaluator
	invalidator cache.Invalidator
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// ApprovalDependencies bundles collaborators for the service.
type ApprovalDependencies struct {
	Store       TxStore
	Repos       repository.Repositories
	Clock       workflow.Clock
	Evaluator   workflow.ConditionEvaluator
	Invalidator cache.Invalidator
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	if deps.Clock == nil {
		deps.Clock = workflow.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ApprovalService{
		store:       deps.Store,
		repos:       deps.Repos,
		clock:       deps.Clock,
		evaluator:   deps.Evaluator,
		invalidator: deps.Invalidator,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreateChain persists a chain definition with its steps. Step ids default
// to fresh UUIDs when blank; duplicate ids are tolerated (the resolver
// treats the first occurrence as canonical).
func (s *ApprovalService) CreateChain(ctx context.Context, tenant string, chain *domain.ApprovalChain) (*domain.ApprovalChain, error) {
	if strings.TrimSpace(chain.Name) == "" {
		return nil, apperrors.NewValidationError("chain name required", nil)
	}
	for _, step := range chain.Steps {
		if step == nil {
			continue
		}
		if step.ID == "" {
			step.ID = uuid.NewString()
		}
		switch step.Kind {
		case domain.StepKindUser, domain.StepKindGroup, domain.StepKindConditional:
		default:
			return nil, apperrors.NewValidationError("unknown step kind", map[string]any{"kind": step.Kind})
		}
	}

	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		return r.Approvals.CreateChain(ctx, tenant, chain)
	})
	if err != nil {
		return nil, s.mapErr(err, "approval chain")
	}
	return chain, nil
}

// GetChain loads a chain definition.
func (s *ApprovalService) GetChain(ctx context.Context, tenant, chainID string) (*domain.ApprovalChain, error) {
	chain, err := s.repos.Approvals.GetChain(ctx, tenant, chainID)
	if err != nil {
		return nil, s.mapErr(err, "approval chain")
	}
	return chain, nil
}

// Resolve returns the chain's current state and next actionable step
// without recording anything.
func (s *ApprovalService) Resolve(ctx context.Context, tenant, chainID string) (*ApprovalDecision, error) {
	chain, err := s.repos.Approvals.GetChain(ctx, tenant, chainID)
	if err != nil {
		return nil, s.mapErr(err, "approval chain")
	}
	records, err := s.repos.Approvals.ListRecords(ctx, tenant, chainID)
	if err != nil {
		return nil, s.mapErr(err, "approval records")
	}
	return decide(chain, records), nil
}

// RecordAction appends one immutable approval record for a step and
// re-resolves the chain. Rejections halt the chain; approvals advance it.
// Acting on behalf of a group uses the same path: the record's actor is
// whoever acted for the group.
func (s *ApprovalService) RecordAction(ctx context.Context, tenant, chainID, stepID, actorID string, approved bool, comments *string, ticketID *string) (*ApprovalDecision, error) {
	var decision *ApprovalDecision
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		chain, err := r.Approvals.GetChain(ctx, tenant, chainID)
		if err != nil {
			return err
		}
		step := workflow.StepByID(chain, stepID)
		if step == nil {
			return apperrors.NewNotFound("approval step", map[string]any{"step_id": stepID})
		}
		records, err := r.Approvals.ListRecords(ctx, tenant, chainID)
		if err != nil {
			return err
		}
		if workflow.Rejected(chain, records) {
			return apperrors.NewConflict("chain already rejected", nil)
		}
		for _, record := range records {
			if record.StepID == step.ID {
				return apperrors.NewConflict("step already resolved", map[string]any{"step_id": step.ID})
			}
		}

		record := &domain.ApprovalRecord{
			ChainID:  chainID,
			TicketID: ticketID,
			StepID:   step.ID,
			Approved: approved,
			ActorID:  actorID,
			Comments: comments,
		}
		if err := r.Approvals.AppendRecord(ctx, tenant, record); err != nil {
			return err
		}

		decision = decide(chain, append(records, *record))
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err, "approval chain")
	}

	s.publishRecorded(ctx, tenant, chainID, stepID, actorID, approved, decision, ticketID)
	return decision, nil
}

// Delegate reassigns a pending user step to another user. The chain
// definition is not versioned; delegation rewrites the step assignee, and
// past records are untouched.
func (s *ApprovalService) Delegate(ctx context.Context, tenant, chainID, stepID, actorID, delegateID string) (*domain.ApprovalChainStep, error) {
	var delegated *domain.ApprovalChainStep
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		chain, err := r.Approvals.GetChain(ctx, tenant, chainID)
		if err != nil {
			return err
		}
		step := workflow.StepByID(chain, stepID)
		if step == nil {
			return apperrors.NewNotFound("approval step", map[string]any{"step_id": stepID})
		}
		if step.Kind != domain.StepKindUser {
			return apperrors.NewValidationError("only user steps can be delegated", nil)
		}
		records, err := r.Approvals.ListRecords(ctx, tenant, chainID)
		if err != nil {
			return err
		}
		for _, record := range records {
			if record.StepID == step.ID {
				return apperrors.NewConflict("step already resolved", map[string]any{"step_id": step.ID})
			}
		}
		step.AssigneeUserID = &delegateID
		if err := r.Approvals.UpdateStepAssignee(ctx, tenant, chainID, step.ID, delegateID); err != nil {
			return err
		}
		delegated = step
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err, "approval chain")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(tenant, "approvals")
	}
	return delegated, nil
}

// EvaluateBranch evaluates a resolved conditional step's expression and
// returns the id of the branch to follow. Branch following is the caller's
// policy; the resolver never walks next/else pointers, so a cyclic chain
// costs one hop per recorded action at most.
func (s *ApprovalService) EvaluateBranch(ctx context.Context, tenant, chainID, stepID string, context_ map[string]any) (*string, error) {
	chain, err := s.repos.Approvals.GetChain(ctx, tenant, chainID)
	if err != nil {
		return nil, s.mapErr(err, "approval chain")
	}
	step := workflow.StepByID(chain, stepID)
	if step == nil {
		return nil, apperrors.NewNotFound("approval step", map[string]any{"step_id": stepID})
	}
	if step.Kind != domain.StepKindConditional || step.Condition == nil {
		return nil, apperrors.NewValidationError("step is not conditional", nil)
	}
	if s.evaluator == nil {
		return nil, apperrors.NewValidationError("no condition evaluator configured", nil)
	}
	matched, err := s.evaluator.Evaluate(*step.Condition, context_)
	if err != nil {
		return nil, apperrors.NewValidationError("condition evaluation failed", map[string]any{"condition": *step.Condition})
	}
	if matched {
		return step.NextStepID, nil
	}
	return step.ElseStepID, nil
}

func decide(chain *domain.ApprovalChain, records []domain.ApprovalRecord) *ApprovalDecision {
	if workflow.Rejected(chain, records) {
		return &ApprovalDecision{State: ChainStateRejected}
	}
	next := workflow.NextStep(chain, records)
	if next == nil {
		if workflow.ChainComplete(chain, records) {
			return &ApprovalDecision{State: ChainStateApproved}
		}
		// Empty or malformed chain: nothing actionable.
		return &ApprovalDecision{State: ChainStatePending}
	}
	return &ApprovalDecision{State: ChainStatePending, NextStep: next}
}

func (s *ApprovalService) publishRecorded(ctx context.Context, tenant, chainID, stepID, actorID string, approved bool, decision *ApprovalDecision, ticketID *string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(tenant, "approvals")
	}
	if s.dispatcher == nil {
		return
	}
	payload := events.ApprovalRecordedPayload{ChainID: chainID, StepID: stepID, Approved: approved}
	if decision != nil && decision.NextStep != nil {
		next := decision.NextStep.ID
		payload.NextStepID = &next
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventApprovalRecorded,
		Tenant:    tenant,
		ActorID:   actorID,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	if ticketID != nil {
		event.TicketID = *ticketID
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *ApprovalService) mapErr(err error, resource string) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	s.logger.Error("approval store operation failed", zap.Error(err))
	return apperrors.NewTransactionFailure(err)
}
