package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firelater/itsm-service/internal/domain"
)

func userStep(id string, order int) *domain.ApprovalChainStep {
	user := "user-" + id
	return &domain.ApprovalChainStep{ID: id, Kind: domain.StepKindUser, Order: order, AssigneeUserID: &user}
}

func approval(stepID string, approved bool) domain.ApprovalRecord {
	return domain.ApprovalRecord{StepID: stepID, Approved: approved, ActorID: "actor-1"}
}

func TestNextStepEmptyChain(t *testing.T) {
	assert.Nil(t, NextStep(nil, nil))
	assert.Nil(t, NextStep(&domain.ApprovalChain{}, nil))
	assert.Nil(t, NextStep(&domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{}}, nil))
}

func TestNextStepMalformedEntriesTolerated(t *testing.T) {
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{nil, nil}}
	assert.Nil(t, NextStep(chain, nil))

	chain = &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{nil, userStep("s1", 1), nil}}
	next := NextStep(chain, nil)
	require.NotNil(t, next)
	assert.Equal(t, "s1", next.ID)
}

func TestNextStepSequentialProgress(t *testing.T) {
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{
		userStep("s1", 1), userStep("s2", 2), userStep("s3", 3),
	}}

	next := NextStep(chain, nil)
	require.NotNil(t, next)
	assert.Equal(t, "s1", next.ID)

	records := []domain.ApprovalRecord{approval("s1", true)}
	next = NextStep(chain, records)
	require.NotNil(t, next)
	assert.Equal(t, "s2", next.ID)

	records = append(records, approval("s2", true), approval("s3", true))
	assert.Nil(t, NextStep(chain, records))
	assert.True(t, ChainComplete(chain, records))
}

func TestNextStepRejectionHalts(t *testing.T) {
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{
		userStep("s1", 1), userStep("s2", 2),
	}}
	records := []domain.ApprovalRecord{approval("s1", false)}

	assert.Nil(t, NextStep(chain, records))
	assert.True(t, Rejected(chain, records))
	assert.False(t, ChainComplete(chain, records))
}

func TestNextStepParallelSiblings(t *testing.T) {
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{
		userStep("s1", 1), userStep("s2a", 2), userStep("s2b", 2), userStep("s3", 3),
	}}
	records := []domain.ApprovalRecord{approval("s1", true)}

	next := NextStep(chain, records)
	require.NotNil(t, next)
	assert.Contains(t, []string{"s2a", "s2b"}, next.ID)

	// One sibling approved leaves the other actionable before any later group.
	records = append(records, approval("s2a", true))
	next = NextStep(chain, records)
	require.NotNil(t, next)
	assert.Equal(t, "s2b", next.ID)

	records = append(records, approval("s2b", true))
	next = NextStep(chain, records)
	require.NotNil(t, next)
	assert.Equal(t, "s3", next.ID)
}

func TestNextStepDuplicateStepIDs(t *testing.T) {
	first := userStep("s1", 1)
	shadow := userStep("s1", 2)
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{first, shadow}}

	next := NextStep(chain, nil)
	require.NotNil(t, next)
	assert.Same(t, first, next)

	// Approving the canonical id completes the chain; the shadow step is
	// never surfaced separately.
	assert.Nil(t, NextStep(chain, []domain.ApprovalRecord{approval("s1", true)}))
}

func TestNextStepDuplicateRecordsFirstWins(t *testing.T) {
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{
		userStep("s1", 1), userStep("s2", 2),
	}}
	records := []domain.ApprovalRecord{approval("s1", true), approval("s1", false)}

	next := NextStep(chain, records)
	require.NotNil(t, next)
	assert.Equal(t, "s2", next.ID)
}

func TestNextStepGroupKind(t *testing.T) {
	group := "grp-net"
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{
		{ID: "g1", Kind: domain.StepKindGroup, Order: 1, AssigneeGroupID: &group},
	}}

	next := NextStep(chain, nil)
	require.NotNil(t, next)
	assert.Equal(t, domain.StepKindGroup, next.Kind)

	assert.Nil(t, NextStep(chain, []domain.ApprovalRecord{approval("g1", true)}))
}

func TestNextStepConditionalSurfacedToCaller(t *testing.T) {
	condition := "amount > 1000"
	nextID, elseID := "s2", "s3"
	conditional := &domain.ApprovalChainStep{
		ID: "c1", Kind: domain.StepKindConditional, Order: 1,
		Condition: &condition, NextStepID: &nextID, ElseStepID: &elseID,
	}
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{
		conditional, userStep("s2", 2), userStep("s3", 2),
	}}

	next := NextStep(chain, nil)
	require.NotNil(t, next)
	assert.Same(t, conditional, next)

	// Resolving the conditional advances to its order group's successors;
	// branch selection is the caller's job.
	next = NextStep(chain, []domain.ApprovalRecord{approval("c1", true)})
	require.NotNil(t, next)
	assert.Contains(t, []string{"s2", "s3"}, next.ID)
}

func TestStepByID(t *testing.T) {
	first := userStep("s1", 1)
	shadow := userStep("s1", 2)
	chain := &domain.ApprovalChain{Steps: []*domain.ApprovalChainStep{nil, first, shadow}}

	assert.Same(t, first, StepByID(chain, "s1"))
	assert.Nil(t, StepByID(chain, "missing"))
}

func TestChainCompleteEmptyChainIsNotComplete(t *testing.T) {
	assert.False(t, ChainComplete(&domain.ApprovalChain{}, nil))
}
