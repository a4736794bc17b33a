package workflow

import (
	"github.com/firelater/itsm-service/internal/domain"

	apperrors "github.com/firelater/itsm-service/pkg/util/errorutil"
)

// Transition tables are explicit per kind. The reopen edges
// (RESOLVED -> IN_PROGRESS, CLOSED -> IN_PROGRESS / INVESTIGATING) are
// asymmetric with the forward edges, so the tables are written out rather
// than derived from any terminal/non-terminal rule.
var issueTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.StatusNew:        {domain.StatusAssigned, domain.StatusInProgress, domain.StatusClosed},
	domain.StatusAssigned:   {domain.StatusInProgress, domain.StatusPending, domain.StatusResolved, domain.StatusClosed},
	domain.StatusInProgress: {domain.StatusPending, domain.StatusResolved, domain.StatusClosed},
	domain.StatusPending:    {domain.StatusInProgress, domain.StatusResolved, domain.StatusClosed},
	domain.StatusResolved:   {domain.StatusClosed, domain.StatusInProgress},
	domain.StatusClosed:     {domain.StatusInProgress},
}

var problemTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.StatusNew:                 {domain.StatusAssigned, domain.StatusInvestigating, domain.StatusClosed},
	domain.StatusAssigned:            {domain.StatusInvestigating, domain.StatusClosed},
	domain.StatusInvestigating:       {domain.StatusRootCauseIdentified, domain.StatusResolved, domain.StatusClosed},
	domain.StatusRootCauseIdentified: {domain.StatusKnownError, domain.StatusResolved, domain.StatusInvestigating},
	domain.StatusKnownError:          {domain.StatusResolved, domain.StatusClosed},
	domain.StatusResolved:            {domain.StatusClosed, domain.StatusInvestigating},
	domain.StatusClosed:              {domain.StatusInvestigating},
}

func tableFor(kind domain.TicketKind) map[domain.TicketStatus][]domain.TicketStatus {
	if kind == domain.KindProblem {
		return problemTransitions
	}
	return issueTransitions
}

// CanTransition reports whether the pure state graph for kind allows
// current -> next. Business preconditions are layered on top by
// CheckTransition.
func CanTransition(kind domain.TicketKind, current, next domain.TicketStatus) bool {
	for _, candidate := range tableFor(kind)[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedNext returns the legal successor statuses for a (kind, status) pair.
func AllowedNext(kind domain.TicketKind, current domain.TicketStatus) []domain.TicketStatus {
	allowed := tableFor(kind)[current]
	out := make([]domain.TicketStatus, len(allowed))
	copy(out, allowed)
	return out
}

// CheckTransition validates the requested move for the ticket, including the
// kind-specific preconditions that the state graph alone does not express.
// An illegal edge yields an IllegalTransition error naming the from/to pair;
// a legal edge blocked by a business rule yields PreconditionFailed.
func CheckTransition(ticket *domain.Ticket, next domain.TicketStatus) error {
	if !CanTransition(ticket.Kind, ticket.Status, next) {
		return apperrors.NewIllegalTransition(string(ticket.Status), string(next), AllowedNextStrings(ticket.Kind, ticket.Status))
	}
	if ticket.Kind == domain.KindProblem && (next == domain.StatusResolved || next == domain.StatusClosed) {
		if !ticket.HasIdentifiedRootCause() {
			return apperrors.NewPreconditionFailed("root cause must be identified before resolving or closing a problem", map[string]any{
				"status": next,
			})
		}
	}
	return nil
}

// AllowedNextStrings is AllowedNext converted for error details.
func AllowedNextStrings(kind domain.TicketKind, current domain.TicketStatus) []string {
	allowed := tableFor(kind)[current]
	out := make([]string, 0, len(allowed))
	for _, status := range allowed {
		out = append(out, string(status))
	}
	return out
}
