package workflow

import (
	"time"

	"github.com/firelater/itsm-service/internal/domain"
)

// SLATargets is the outcome of resolving a policy set for one priority.
// A nil minute offset means no target is configured for that metric, which
// is valid and leaves the corresponding due date unset.
type SLATargets struct {
	PolicyID          string
	ResponseMinutes   *int
	ResolutionMinutes *int
}

// ResolveTargets selects, among the policies scoped to entityType and
// flagged default, the per-metric target minutes for priority. Pure function
// of its inputs; calling it twice with the same arguments yields the same
// offsets.
func ResolveTargets(policies []domain.SLAPolicy, entityType domain.TicketKind, priority domain.TicketPriority) *SLATargets {
	for i := range policies {
		policy := &policies[i]
		if policy.EntityType != entityType || !policy.IsDefault {
			continue
		}
		targets := SLATargets{PolicyID: policy.ID}
		for _, target := range policy.Targets {
			if target.Priority != priority {
				continue
			}
			minutes := target.TargetMinutes
			switch target.Metric {
			case domain.MetricResponseTime:
				if targets.ResponseMinutes == nil {
					targets.ResponseMinutes = &minutes
				}
			case domain.MetricResolutionTime:
				if targets.ResolutionMinutes == nil {
					targets.ResolutionMinutes = &minutes
				}
			}
		}
		return &targets
	}
	return nil
}

// DueDates converts resolved targets into absolute due timestamps relative
// to now. Computed once at creation and never recomputed on later edits.
func (t *SLATargets) DueDates(now time.Time) (responseDue, resolutionDue *time.Time) {
	if t == nil {
		return nil, nil
	}
	if t.ResponseMinutes != nil {
		due := now.Add(time.Duration(*t.ResponseMinutes) * time.Minute)
		responseDue = &due
	}
	if t.ResolutionMinutes != nil {
		due := now.Add(time.Duration(*t.ResolutionMinutes) * time.Minute)
		resolutionDue = &due
	}
	return responseDue, resolutionDue
}

// IsBreached reports whether a due date has passed without its metric being
// met. Breach is a derived, read-time comparison; persisting the flag is the
// caller's concern.
func IsBreached(due *time.Time, metAt *time.Time, now time.Time) bool {
	if due == nil {
		return false
	}
	if metAt != nil && !metAt.After(*due) {
		return false
	}
	if metAt != nil {
		// Metric was met, but only after the deadline.
		return true
	}
	return now.After(*due)
}
