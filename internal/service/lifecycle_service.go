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

// TxStore runs a function against transaction-bound repositories. Satisfied
// by *repository.Store; faked in tests.
type TxStore interface {
	WithinTx(ctx context.Context, fn func(r repository.Repositories) error) error
}

// LifecycleService is the single writer for ticket state. Every operation
// is one transaction: entity update and history insert commit together or
// not at all. Concurrent transitions on the same ticket are last-writer-wins
// under the store's isolation level; there is no optimistic version column.
type LifecycleService struct {
	store       TxStore
	repos       repository.Repositories
	clock       workflow.Clock
	invalidator cache.Invalidator
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// LifecycleDependencies bundles collaborators for the service.
type LifecycleDependencies struct {
	Store       TxStore
	Repos       repository.Repositories
	Clock       workflow.Clock
	Invalidator cache.Invalidator
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	if deps.Clock == nil {
		deps.Clock = workflow.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &LifecycleService{
		store:       deps.Store,
		repos:       deps.Repos,
		clock:       deps.Clock,
		invalidator: deps.Invalidator,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Kind        domain.TicketKind
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    *string
	Impact      *string
	Urgency     *string
	ProblemType *string
}

// ChangeStatusInput describes a requested transition.
type ChangeStatusInput struct {
	NewStatus  domain.TicketStatus
	Reason     *string
	Resolution *string
}

// UpdateTicketInput carries optional field updates; nil fields are left
// untouched. An input with zero effective fields is a no-op success.
type UpdateTicketInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Category    *string
	Impact      *string
	Urgency     *string
	ProblemType *string
}

func (in UpdateTicketInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.Category == nil && in.Impact == nil && in.Urgency == nil && in.ProblemType == nil
}

// Create allocates a sequence number, resolves the default SLA policy for
// the ticket's priority, computes due dates as now + target minutes, and
// persists the entity plus its creation history row in one transaction.
func (s *LifecycleService) Create(ctx context.Context, tenant, actorID string, input CreateTicketInput) (*domain.Ticket, error) {
	if input.Kind != domain.KindIssue && input.Kind != domain.KindProblem {
		return nil, apperrors.NewValidationError("kind must be ISSUE or PROBLEM", nil)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		Kind:        input.Kind,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      input.Kind.InitialStatus(),
		Priority:    priority,
		Category:    input.Category,
		Impact:      input.Impact,
		Urgency:     input.Urgency,
		ProblemType: input.ProblemType,
		ReporterID:  actorID,
	}

	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		number, err := r.Sequences.NextNumber(ctx, tenant, input.Kind)
		if err != nil {
			return err
		}
		ticket.Number = number

		policies, err := r.SLA.ListByEntityType(ctx, tenant, input.Kind)
		if err != nil {
			return err
		}
		if targets := workflow.ResolveTargets(policies, input.Kind, priority); targets != nil {
			policyID := targets.PolicyID
			ticket.SLAPolicyID = &policyID
			ticket.ResponseDueAt, ticket.ResolutionDueAt = targets.DueDates(now)
		}

		if err := r.Tickets.Create(ctx, tenant, ticket); err != nil {
			return err
		}
		return r.History.Append(ctx, tenant, &domain.StatusHistoryEntry{
			TicketID: ticket.ID,
			ToStatus: ticket.Status,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	s.afterMutation(ctx, tenant, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketCreatedPayload{
			Number:          ticket.Number,
			Kind:            ticket.Kind,
			Priority:        ticket.Priority,
			Title:           ticket.Title,
			ResponseDueAt:   ticket.ResponseDueAt,
			ResolutionDueAt: ticket.ResolutionDueAt,
		},
	})
	return ticket, nil
}

// ChangeStatus validates and applies one transition, appending exactly one
// history row. A rejected transition or precondition leaves state untouched.
func (s *LifecycleService) ChangeStatus(ctx context.Context, tenant, ticketID, actorID string, input ChangeStatusInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	var oldStatus domain.TicketStatus
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		loaded, err := r.Tickets.GetByID(ctx, tenant, ticketID)
		if err != nil {
			return err
		}
		if err := workflow.CheckTransition(loaded, input.NewStatus); err != nil {
			return err
		}

		oldStatus = loaded.Status
		s.applyEntrySideEffects(loaded, input, actorID)
		loaded.Status = input.NewStatus

		if err := r.Tickets.Update(ctx, tenant, loaded); err != nil {
			return err
		}
		if err := r.History.Append(ctx, tenant, &domain.StatusHistoryEntry{
			TicketID:   loaded.ID,
			FromStatus: &oldStatus,
			ToStatus:   loaded.Status,
			ActorID:    actorID,
			Reason:     input.Reason,
		}); err != nil {
			return err
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	reason := ""
	if input.Reason != nil {
		reason = *input.Reason
	}
	s.afterMutation(ctx, tenant, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Reason:    reason,
		},
	})
	return ticket, nil
}

// Assign sets the assignee and, when the ticket is still NEW, performs the
// implicit transition to ASSIGNED. Idempotent: assigning a ticket already
// past NEW only updates the assignee.
func (s *LifecycleService) Assign(ctx context.Context, tenant, ticketID, actorID string, assigneeID, groupID *string) (*domain.Ticket, error) {
	if assigneeID == nil && groupID == nil {
		return nil, apperrors.NewValidationError("assignee or group required", nil)
	}

	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		loaded, err := r.Tickets.GetByID(ctx, tenant, ticketID)
		if err != nil {
			return err
		}
		loaded.AssigneeID = assigneeID
		loaded.AssigneeGroupID = groupID

		var oldStatus *domain.TicketStatus
		if loaded.Status == domain.StatusNew {
			from := loaded.Status
			oldStatus = &from
			s.stampFirstResponse(loaded)
			loaded.Status = domain.StatusAssigned
		}

		if err := r.Tickets.Update(ctx, tenant, loaded); err != nil {
			return err
		}
		if oldStatus != nil {
			if err := r.History.Append(ctx, tenant, &domain.StatusHistoryEntry{
				TicketID:   loaded.ID,
				FromStatus: oldStatus,
				ToStatus:   loaded.Status,
				ActorID:    actorID,
			}); err != nil {
				return err
			}
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	s.afterMutation(ctx, tenant, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload:  events.TicketAssignedPayload{AssigneeID: assigneeID, GroupID: groupID},
	})
	return ticket, nil
}

// Escalate bumps the escalation level and stamps the escalation time. The
// status is left unchanged, so no history row is written.
func (s *LifecycleService) Escalate(ctx context.Context, tenant, ticketID, actorID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		loaded, err := r.Tickets.GetByID(ctx, tenant, ticketID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		loaded.EscalationLevel++
		loaded.EscalatedAt = &now
		if err := r.Tickets.Update(ctx, tenant, loaded); err != nil {
			return err
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	s.afterMutation(ctx, tenant, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload:  events.TicketEscalatedPayload{EscalationLevel: ticket.EscalationLevel},
	})
	return ticket, nil
}

// SetRootCause records a Problem's root cause and its identification time.
// A field update, not a transition; the caller still drives the status.
func (s *LifecycleService) SetRootCause(ctx context.Context, tenant, ticketID, actorID, rootCause string) (*domain.Ticket, error) {
	if strings.TrimSpace(rootCause) == "" {
		return nil, apperrors.NewValidationError("root cause must not be blank", nil)
	}

	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		loaded, err := r.Tickets.GetByID(ctx, tenant, ticketID)
		if err != nil {
			return err
		}
		if loaded.Kind != domain.KindProblem {
			return apperrors.NewValidationError("root cause applies to problems only", nil)
		}
		trimmed := strings.TrimSpace(rootCause)
		now := s.clock.Now()
		loaded.RootCause = &trimmed
		if loaded.RootCauseIdentifiedAt == nil {
			loaded.RootCauseIdentifiedAt = &now
		}
		if err := r.Tickets.Update(ctx, tenant, loaded); err != nil {
			return err
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	s.invalidate(tenant)
	return ticket, nil
}

// Update applies optional field edits. Zero effective fields returns the
// unchanged ticket rather than failing.
func (s *LifecycleService) Update(ctx context.Context, tenant, ticketID, actorID string, input UpdateTicketInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		loaded, err := r.Tickets.GetByID(ctx, tenant, ticketID)
		if err != nil {
			return err
		}
		if input.empty() {
			ticket = loaded
			return nil
		}
		if input.Title != nil {
			loaded.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			loaded.Description = strings.TrimSpace(*input.Description)
		}
		if input.Priority != nil {
			loaded.Priority = *input.Priority
		}
		if input.Category != nil {
			loaded.Category = input.Category
		}
		if input.Impact != nil {
			loaded.Impact = input.Impact
		}
		if input.Urgency != nil {
			loaded.Urgency = input.Urgency
		}
		if input.ProblemType != nil {
			loaded.ProblemType = input.ProblemType
		}
		if err := r.Tickets.Update(ctx, tenant, loaded); err != nil {
			return err
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	if !input.empty() {
		s.invalidate(tenant)
	}
	return ticket, nil
}

// Get loads one ticket.
func (s *LifecycleService) Get(ctx context.Context, tenant, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, tenant, ticketID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return ticket, nil
}

// GetByNumber loads one ticket by its human-readable number.
func (s *LifecycleService) GetByNumber(ctx context.Context, tenant, number string) (*domain.Ticket, error) {
	ticket, err := s.repos.Tickets.GetByNumber(ctx, tenant, number)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return ticket, nil
}

// List returns tickets matching the filter.
func (s *LifecycleService) List(ctx context.Context, tenant string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.repos.Tickets.ListWithFilter(ctx, tenant, filter)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return tickets, nil
}

// History returns a ticket's transition rows in order.
func (s *LifecycleService) History(ctx context.Context, tenant, ticketID string) ([]domain.StatusHistoryEntry, error) {
	if _, err := s.repos.Tickets.GetByID(ctx, tenant, ticketID); err != nil {
		return nil, s.mapStoreErr(err)
	}
	entries, err := s.repos.History.ListByTicket(ctx, tenant, ticketID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return entries, nil
}

// AllowedTransitions reports the legal next statuses for a ticket.
func (s *LifecycleService) AllowedTransitions(ctx context.Context, tenant, ticketID string) ([]domain.TicketStatus, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, tenant, ticketID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return workflow.AllowedNext(ticket.Kind, ticket.Status), nil
}

// applyEntrySideEffects stamps the kind-specific fields for the state being
// entered. Reopen transitions leave historical stamps in place: resolution
// and closure timestamps record that the state was reached at least once.
func (s *LifecycleService) applyEntrySideEffects(ticket *domain.Ticket, input ChangeStatusInput, actorID string) {
	now := s.clock.Now()
	switch input.NewStatus {
	case domain.StatusAssigned:
		s.stampFirstResponse(ticket)
	case domain.StatusResolved:
		ticket.ResolvedAt = &now
		ticket.ResolvedByID = &actorID
		minutes := int(now.Sub(ticket.CreatedAt).Minutes())
		ticket.ResolutionTimeMinutes = &minutes
		if input.Resolution != nil {
			ticket.Resolution = input.Resolution
		}
		if workflow.IsBreached(ticket.ResolutionDueAt, &now, now) {
			ticket.SLABreached = true
		}
	case domain.StatusKnownError:
		ticket.IsKnownError = true
		if ticket.KnownErrorSince == nil {
			ticket.KnownErrorSince = &now
		}
	case domain.StatusClosed:
		ticket.ClosedAt = &now
		ticket.ClosedByID = &actorID
	}
}

func (s *LifecycleService) stampFirstResponse(ticket *domain.Ticket) {
	if ticket.FirstResponseAt != nil {
		return
	}
	now := s.clock.Now()
	ticket.FirstResponseAt = &now
	minutes := int(now.Sub(ticket.CreatedAt).Minutes())
	ticket.ResponseTimeMinutes = &minutes
	if workflow.IsBreached(ticket.ResponseDueAt, &now, now) {
		ticket.SLABreached = true
	}
}

// afterMutation fires the cache invalidation signal and publishes the event
// after a committed write. Both are best-effort and never fail the caller.
func (s *LifecycleService) afterMutation(ctx context.Context, tenant string, event events.Event) {
	s.invalidate(tenant)
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Tenant = tenant
	event.Timestamp = s.clock.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *LifecycleService) invalidate(tenant string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(tenant, "tickets")
	}
}

// mapStoreErr keeps DomainErrors intact, turns missing rows into NotFound,
// and wraps anything else as a transaction failure after rollback.
func (s *LifecycleService) mapStoreErr(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	s.logger.Error("ticket store operation failed", zap.Error(err))
	return apperrors.NewTransactionFailure(err)
}
