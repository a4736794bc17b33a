package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firelater/itsm-service/internal/domain"
	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

var issueStatuses = []domain.TicketStatus{
	domain.StatusNew, domain.StatusAssigned, domain.StatusInProgress,
	domain.StatusPending, domain.StatusResolved, domain.StatusClosed,
}

var problemStatuses = []domain.TicketStatus{
	domain.StatusNew, domain.StatusAssigned, domain.StatusInvestigating,
	domain.StatusRootCauseIdentified, domain.StatusKnownError,
	domain.StatusResolved, domain.StatusClosed,
}

func TestIssueTransitionTableClosure(t *testing.T) {
	legal := map[domain.TicketStatus][]domain.TicketStatus{
		domain.StatusNew:        {domain.StatusAssigned, domain.StatusInProgress, domain.StatusClosed},
		domain.StatusAssigned:   {domain.StatusInProgress, domain.StatusPending, domain.StatusResolved, domain.StatusClosed},
		domain.StatusInProgress: {domain.StatusPending, domain.StatusResolved, domain.StatusClosed},
		domain.StatusPending:    {domain.StatusInProgress, domain.StatusResolved, domain.StatusClosed},
		domain.StatusResolved:   {domain.StatusClosed, domain.StatusInProgress},
		domain.StatusClosed:     {domain.StatusInProgress},
	}
	for _, from := range issueStatuses {
		allowed := map[domain.TicketStatus]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range issueStatuses {
			got := CanTransition(domain.KindIssue, from, to)
			assert.Equal(t, allowed[to], got, "issue %s -> %s", from, to)
		}
	}
}

func TestProblemTransitionTableClosure(t *testing.T) {
	legal := map[domain.TicketStatus][]domain.TicketStatus{
		domain.StatusNew:                 {domain.StatusAssigned, domain.StatusInvestigating, domain.StatusClosed},
		domain.StatusAssigned:            {domain.StatusInvestigating, domain.StatusClosed},
		domain.StatusInvestigating:       {domain.StatusRootCauseIdentified, domain.StatusResolved, domain.StatusClosed},
		domain.StatusRootCauseIdentified: {domain.StatusKnownError, domain.StatusResolved, domain.StatusInvestigating},
		domain.StatusKnownError:          {domain.StatusResolved, domain.StatusClosed},
		domain.StatusResolved:            {domain.StatusClosed, domain.StatusInvestigating},
		domain.StatusClosed:              {domain.StatusInvestigating},
	}
	for _, from := range problemStatuses {
		allowed := map[domain.TicketStatus]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range problemStatuses {
			got := CanTransition(domain.KindProblem, from, to)
			assert.Equal(t, allowed[to], got, "problem %s -> %s", from, to)
		}
	}
}

func TestSelfTransitionsRejected(t *testing.T) {
	for _, status := range issueStatuses {
		assert.False(t, CanTransition(domain.KindIssue, status, status), "issue %s -> itself", status)
	}
	for _, status := range problemStatuses {
		assert.False(t, CanTransition(domain.KindProblem, status, status), "problem %s -> itself", status)
	}
}

func TestReopenAsymmetry(t *testing.T) {
	assert.True(t, CanTransition(domain.KindIssue, domain.StatusResolved, domain.StatusClosed))
	assert.True(t, CanTransition(domain.KindIssue, domain.StatusClosed, domain.StatusInProgress))
	assert.False(t, CanTransition(domain.KindIssue, domain.StatusClosed, domain.StatusResolved))
}

func TestProblemResolutionPrecondition(t *testing.T) {
	for _, from := range []domain.TicketStatus{domain.StatusInvestigating, domain.StatusRootCauseIdentified} {
		ticket := &domain.Ticket{Kind: domain.KindProblem, Status: from}
		err := CheckTransition(ticket, domain.StatusResolved)
		require.Error(t, err, "from %s", from)
		assert.True(t, apperrors.IsCode(err, "PRECONDITION_FAILED"), "from %s", from)
	}

	ticket := &domain.Ticket{
		Kind:   domain.KindProblem,
		Status: domain.StatusRootCauseIdentified,
	}

	rootCause := "faulty switch firmware"
	identifiedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket.RootCause = &rootCause
	ticket.RootCauseIdentifiedAt = &identifiedAt

	assert.NoError(t, CheckTransition(ticket, domain.StatusResolved))
}

func TestProblemBlankRootCauseRejected(t *testing.T) {
	blank := "   "
	identifiedAt := time.Now()
	ticket := &domain.Ticket{
		Kind:                  domain.KindProblem,
		Status:                domain.StatusKnownError,
		RootCause:             &blank,
		RootCauseIdentifiedAt: &identifiedAt,
	}
	err := CheckTransition(ticket, domain.StatusResolved)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "PRECONDITION_FAILED"))
}

func TestIllegalTransitionCarriesPair(t *testing.T) {
	ticket := &domain.Ticket{Kind: domain.KindIssue, Status: domain.StatusClosed}
	err := CheckTransition(ticket, domain.StatusResolved)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "ILLEGAL_TRANSITION", domainErr.Code)
	assert.Equal(t, "CLOSED", domainErr.Details["from"])
	assert.Equal(t, "RESOLVED", domainErr.Details["to"])
}

func TestAllowedNextIsACopy(t *testing.T) {
	first := AllowedNext(domain.KindIssue, domain.StatusNew)
	first[0] = domain.StatusClosed
	second := AllowedNext(domain.KindIssue, domain.StatusNew)
	assert.Equal(t, domain.StatusAssigned, second[0])
}
