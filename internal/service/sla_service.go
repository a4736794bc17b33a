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

// SLAService administers policies and runs the breach sweep. Due dates are
// fixed at ticket creation; the sweep only flips breach flags on tickets
// whose deadline has passed unmet.
type SLAService struct {
	store       TxStore
	repos       repository.Repositories
	clock       workflow.Clock
	invalidator cache.Invalidator
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// SLADependencies bundles collaborators for the service.
type SLADependencies struct {
	Store       TxStore
	Repos       repository.Repositories
	Clock       workflow.Clock
	Invalidator cache.Invalidator
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	if deps.Clock == nil {
		deps.Clock = workflow.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SLAService{
		store:       deps.Store,
		repos:       deps.Repos,
		clock:       deps.Clock,
		invalidator: deps.Invalidator,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreatePolicy persists a policy with its targets. Setting IsDefault clears
// the previous default for the kind inside the same transaction, keeping
// the one-default-per-kind invariant.
func (s *SLAService) CreatePolicy(ctx context.Context, tenant string, policy *domain.SLAPolicy) (*domain.SLAPolicy, error) {
	if strings.TrimSpace(policy.Name) == "" {
		return nil, apperrors.NewValidationError("policy name required", nil)
	}
	if policy.EntityType != domain.KindIssue && policy.EntityType != domain.KindProblem {
		return nil, apperrors.NewValidationError("entity_type must be ISSUE or PROBLEM", nil)
	}
	for _, target := range policy.Targets {
		if target.TargetMinutes <= 0 {
			return nil, apperrors.NewValidationError("target_minutes must be positive", nil)
		}
		if target.Metric != domain.MetricResponseTime && target.Metric != domain.MetricResolutionTime {
			return nil, apperrors.NewValidationError("unknown metric", map[string]any{"metric": target.Metric})
		}
	}

	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		if policy.IsDefault {
			if err := r.SLA.ClearDefault(ctx, tenant, policy.EntityType); err != nil {
				return err
			}
		}
		return r.SLA.Create(ctx, tenant, policy)
	})
	if err != nil {
		return nil, s.mapErr(err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(tenant, "sla_policies")
	}
	return policy, nil
}

// ListPolicies returns policies for one kind, default first.
func (s *SLAService) ListPolicies(ctx context.Context, tenant string, entityType domain.TicketKind) ([]domain.SLAPolicy, error) {
	policies, err := s.repos.SLA.ListByEntityType(ctx, tenant, entityType)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return policies, nil
}

// PreviewTargets resolves the default policy's targets for a priority
// without touching any ticket.
func (s *SLAService) PreviewTargets(ctx context.Context, tenant string, entityType domain.TicketKind, priority domain.TicketPriority) (*workflow.SLATargets, error) {
	policies, err := s.repos.SLA.ListByEntityType(ctx, tenant, entityType)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return workflow.ResolveTargets(policies, entityType, priority), nil
}

// SweepBreaches flags tickets whose response or resolution deadline passed
// without the metric being met, and emits one sla_breached event per newly
// flagged ticket. Returns the number of tickets flagged.
func (s *SLAService) SweepBreaches(ctx context.Context, tenant string) (int, error) {
	now := s.clock.Now()
	var breached []domain.Ticket
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		due, err := r.Tickets.ListDueUnbreached(ctx, tenant, now)
		if err != nil {
			return err
		}
		for i := range due {
			ticket := &due[i]
			responseBreached := ticket.FirstResponseAt == nil && workflow.IsBreached(ticket.ResponseDueAt, nil, now)
			resolutionBreached := ticket.ResolvedAt == nil && workflow.IsBreached(ticket.ResolutionDueAt, nil, now)
			if !responseBreached && !resolutionBreached {
				continue
			}
			ticket.SLABreached = true
			if err := r.Tickets.Update(ctx, tenant, ticket); err != nil {
				return err
			}
			breached = append(breached, *ticket)
		}
		return nil
	})
	if err != nil {
		return 0, s.mapErr(err)
	}

	if len(breached) > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(tenant, "tickets")
	}
	if s.dispatcher != nil {
		for i := range breached {
			ticket := &breached[i]
			metric := domain.MetricResolutionTime
			dueAt := ticket.ResolutionDueAt
			if ticket.FirstResponseAt == nil && workflow.IsBreached(ticket.ResponseDueAt, nil, now) {
				metric = domain.MetricResponseTime
				dueAt = ticket.ResponseDueAt
			}
			if dueAt == nil {
				continue
			}
			_ = s.dispatcher.Publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventSLABreached,
				Tenant:    tenant,
				TicketID:  ticket.ID,
				ActorID:   "system",
				Timestamp: now,
				Payload:   events.SLABreachedPayload{Metric: metric, DueAt: *dueAt},
			})
		}
	}
	return len(breached), nil
}

func (s *SLAService) mapErr(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("sla policy", nil)
	}
	s.logger.Error("sla store operation failed", zap.Error(err))
	return apperrors.NewTransactionFailure(err)
}
