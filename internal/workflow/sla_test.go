package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firelater/itsm-service/internal/domain"
)

func defaultIssuePolicy() domain.SLAPolicy {
	return domain.SLAPolicy{
		ID:         "pol-1",
		Name:       "Standard Issue SLA",
		EntityType: domain.KindIssue,
		IsDefault:  true,
		Targets: []domain.SLATarget{
			{PolicyID: "pol-1", Priority: domain.PriorityHigh, Metric: domain.MetricResponseTime, TargetMinutes: 30},
			{PolicyID: "pol-1", Priority: domain.PriorityHigh, Metric: domain.MetricResolutionTime, TargetMinutes: 480},
			{PolicyID: "pol-1", Priority: domain.PriorityLow, Metric: domain.MetricResolutionTime, TargetMinutes: 2880},
		},
	}
}

func TestResolveTargetsMatchesPriority(t *testing.T) {
	policies := []domain.SLAPolicy{defaultIssuePolicy()}

	targets := ResolveTargets(policies, domain.KindIssue, domain.PriorityHigh)
	require.NotNil(t, targets)
	assert.Equal(t, "pol-1", targets.PolicyID)
	require.NotNil(t, targets.ResponseMinutes)
	require.NotNil(t, targets.ResolutionMinutes)
	assert.Equal(t, 30, *targets.ResponseMinutes)
	assert.Equal(t, 480, *targets.ResolutionMinutes)
}

func TestResolveTargetsIsDeterministic(t *testing.T) {
	policies := []domain.SLAPolicy{defaultIssuePolicy()}
	first := ResolveTargets(policies, domain.KindIssue, domain.PriorityHigh)
	second := ResolveTargets(policies, domain.KindIssue, domain.PriorityHigh)
	assert.Equal(t, first, second)
}

func TestResolveTargetsMissingMetricIsNotAnError(t *testing.T) {
	policies := []domain.SLAPolicy{defaultIssuePolicy()}

	targets := ResolveTargets(policies, domain.KindIssue, domain.PriorityLow)
	require.NotNil(t, targets)
	assert.Nil(t, targets.ResponseMinutes)
	require.NotNil(t, targets.ResolutionMinutes)
	assert.Equal(t, 2880, *targets.ResolutionMinutes)
}

func TestResolveTargetsUnmatchedPriority(t *testing.T) {
	policies := []domain.SLAPolicy{defaultIssuePolicy()}

	targets := ResolveTargets(policies, domain.KindIssue, domain.PriorityCritical)
	require.NotNil(t, targets)
	assert.Nil(t, targets.ResponseMinutes)
	assert.Nil(t, targets.ResolutionMinutes)

	responseDue, resolutionDue := targets.DueDates(time.Now())
	assert.Nil(t, responseDue)
	assert.Nil(t, resolutionDue)
}

func TestResolveTargetsSkipsNonDefaultAndOtherKinds(t *testing.T) {
	nonDefault := defaultIssuePolicy()
	nonDefault.ID = "pol-2"
	nonDefault.IsDefault = false
	problemPolicy := defaultIssuePolicy()
	problemPolicy.ID = "pol-3"
	problemPolicy.EntityType = domain.KindProblem

	assert.Nil(t, ResolveTargets([]domain.SLAPolicy{nonDefault}, domain.KindIssue, domain.PriorityHigh))

	targets := ResolveTargets([]domain.SLAPolicy{nonDefault, problemPolicy, defaultIssuePolicy()}, domain.KindIssue, domain.PriorityHigh)
	require.NotNil(t, targets)
	assert.Equal(t, "pol-1", targets.PolicyID)
}

func TestDueDates(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	policies := []domain.SLAPolicy{defaultIssuePolicy()}
	targets := ResolveTargets(policies, domain.KindIssue, domain.PriorityHigh)

	responseDue, resolutionDue := targets.DueDates(now)
	require.NotNil(t, responseDue)
	require.NotNil(t, resolutionDue)
	assert.Equal(t, now.Add(30*time.Minute), *responseDue)
	assert.Equal(t, now.Add(480*time.Minute), *resolutionDue)
}

func TestIsBreached(t *testing.T) {
	due := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	before := due.Add(-time.Hour)
	after := due.Add(time.Hour)

	assert.False(t, IsBreached(nil, nil, after))
	assert.False(t, IsBreached(&due, nil, before))
	assert.True(t, IsBreached(&due, nil, after))
	assert.False(t, IsBreached(&due, &before, after))
	assert.True(t, IsBreached(&due, &after, after.Add(time.Hour)))
}
