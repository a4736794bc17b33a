package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firelater/itsm-service/internal/domain"
	"github.com/firelater/itsm-service/internal/events"
	"github.com/firelater/itsm-service/internal/repository"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

type slaFixture struct {
	service    *SLAService
	tickets    *fakeTicketRepo
	sla        *fakeSLARepo
	dispatcher *recordingDispatcher
	clock      *mutableClock
}

func newSLAFixture(t *testing.T) *slaFixture {
	t.Helper()
	clock := &mutableClock{instant: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	tickets := newFakeTicketRepo(clock.Now)
	sla := &fakeSLARepo{}
	repos := repository.Repositories{
		Tickets:   tickets,
		History:   newFakeHistoryRepo(clock.Now),
		SLA:       sla,
		Approvals: newFakeApprovalRepo(clock.Now),
		Users:     newFakeUserRepo(),
		Sequences: newFakeSequenceRepo(),
	}
	dispatcher := &recordingDispatcher{}
	svc := NewSLAService(SLADependencies{
		Store:       &fakeStore{repos: repos},
		Repos:       repos,
		Clock:       clock,
		Invalidator: &recordingInvalidator{},
		Dispatcher:  dispatcher,
	})
	return &slaFixture{service: svc, tickets: tickets, sla: sla, dispatcher: dispatcher, clock: clock}
}

func TestCreatePolicyValidation(t *testing.T) {
	f := newSLAFixture(t)

	_, err := f.service.CreatePolicy(context.Background(), "acme", &domain.SLAPolicy{Name: " ", EntityType: domain.KindIssue})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.CreatePolicy(context.Background(), "acme", &domain.SLAPolicy{Name: "p", EntityType: "CHANGE"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.CreatePolicy(context.Background(), "acme", &domain.SLAPolicy{
		Name:       "p",
		EntityType: domain.KindIssue,
		Targets:    []domain.SLATarget{{Priority: domain.PriorityHigh, Metric: domain.MetricResponseTime, TargetMinutes: 0}},
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreatePolicyKeepsSingleDefaultPerKind(t *testing.T) {
	f := newSLAFixture(t)

	first, err := f.service.CreatePolicy(context.Background(), "acme", &domain.SLAPolicy{
		Name:       "gold",
		EntityType: domain.KindIssue,
		IsDefault:  true,
	})
	require.NoError(t, err)

	_, err = f.service.CreatePolicy(context.Background(), "acme", &domain.SLAPolicy{
		Name:       "silver",
		EntityType: domain.KindIssue,
		IsDefault:  true,
	})
	require.NoError(t, err)

	policies, err := f.service.ListPolicies(context.Background(), "acme", domain.KindIssue)
	require.NoError(t, err)
	require.Len(t, policies, 2)

	defaults := 0
	for _, policy := range policies {
		if policy.IsDefault {
			defaults++
			assert.NotEqual(t, first.ID, policy.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestPreviewTargets(t *testing.T) {
	f := newSLAFixture(t)
	_, err := f.service.CreatePolicy(context.Background(), "acme", &domain.SLAPolicy{
		Name:       "standard",
		EntityType: domain.KindIssue,
		IsDefault:  true,
		Targets: []domain.SLATarget{
			{Priority: domain.PriorityHigh, Metric: domain.MetricResponseTime, TargetMinutes: 30},
			{Priority: domain.PriorityHigh, Metric: domain.MetricResolutionTime, TargetMinutes: 240},
		},
	})
	require.NoError(t, err)

	targets, err := f.service.PreviewTargets(context.Background(), "acme", domain.KindIssue, domain.PriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, targets)
	require.NotNil(t, targets.ResponseMinutes)
	assert.Equal(t, 30, *targets.ResponseMinutes)
	require.NotNil(t, targets.ResolutionMinutes)
	assert.Equal(t, 240, *targets.ResolutionMinutes)

	targets, err = f.service.PreviewTargets(context.Background(), "acme", domain.KindIssue, domain.PriorityLow)
	require.NoError(t, err)
	assert.Nil(t, targets)
}

func TestSweepBreachesFlagsOverdueTickets(t *testing.T) {
	f := newSLAFixture(t)
	now := f.clock.Now()

	overdue := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	seed := []*domain.Ticket{
		{Number: "INC-000001", Kind: domain.KindIssue, Status: domain.StatusNew, ResponseDueAt: &overdue},
		{Number: "INC-000002", Kind: domain.KindIssue, Status: domain.StatusInProgress, ResolutionDueAt: &overdue},
		{Number: "INC-000003", Kind: domain.KindIssue, Status: domain.StatusNew, ResponseDueAt: &future},
	}
	for _, ticket := range seed {
		require.NoError(t, f.tickets.Create(context.Background(), "acme", ticket))
	}

	flagged, err := f.service.SweepBreaches(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)

	breachedEvents := f.dispatcher.byType(events.EventSLABreached)
	assert.Len(t, breachedEvents, 2)

	// A second sweep finds nothing new.
	flagged, err = f.service.SweepBreaches(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
}

func TestSweepIgnoresMetricsAlreadyMet(t *testing.T) {
	f := newSLAFixture(t)
	now := f.clock.Now()

	overdue := now.Add(-time.Hour)
	responded := now.Add(-90 * time.Minute)
	ticket := &domain.Ticket{
		Number:          "INC-000001",
		Kind:            domain.KindIssue,
		Status:          domain.StatusAssigned,
		ResponseDueAt:   &overdue,
		FirstResponseAt: &responded,
	}
	require.NoError(t, f.tickets.Create(context.Background(), "acme", ticket))

	flagged, err := f.service.SweepBreaches(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
}
