package workflow

import (
	"sort"

	"github.com/firelater/itsm-service/internal/domain"
)

// ConditionEvaluator evaluates a conditional step's expression against a
// caller-supplied context. It is a seam for the external rules engine; the
// resolver itself never evaluates conditions.
type ConditionEvaluator interface {
	Evaluate(condition string, context map[string]any) (bool, error)
}

// NextStep resolves the next actionable step of a chain given the approval
// records accumulated so far, or nil when nothing is actionable.
//
// Steps are partitioned by Order; steps sharing an order are parallel
// siblings and any one of them may be returned. Groups are walked lowest
// order first. A record with Approved=false on any addressable step is a
// terminal rejection: the chain never advances past it and nil is returned.
// Conditional steps are surfaced like any other step; following their
// next/else branch targets is the caller's responsibility.
//
// Malformed chains degrade to nil rather than failing: nil step entries are
// dropped by an explicit sanitize pass, and when two steps share an id only
// the first occurrence is addressable (the later one is shadow data).
func NextStep(chain *domain.ApprovalChain, records []domain.ApprovalRecord) *domain.ApprovalChainStep {
	if chain == nil {
		return nil
	}
	steps := sanitizeSteps(chain.Steps)
	if len(steps) == 0 {
		return nil
	}

	// First record per step wins; later records for the same step are
	// ignored, matching the first-occurrence rule for duplicate step ids.
	outcomes := make(map[string]bool, len(records))
	for _, record := range records {
		if _, seen := outcomes[record.StepID]; !seen {
			outcomes[record.StepID] = record.Approved
		}
	}

	// One rejection halts the whole approval.
	for _, step := range steps {
		if approved, ok := outcomes[step.ID]; ok && !approved {
			return nil
		}
	}

	orders := make([]int, 0, len(steps))
	grouped := make(map[int][]*domain.ApprovalChainStep)
	for _, step := range steps {
		if _, seen := grouped[step.Order]; !seen {
			orders = append(orders, step.Order)
		}
		grouped[step.Order] = append(grouped[step.Order], step)
	}
	sort.Ints(orders)

	for _, order := range orders {
		for _, step := range grouped[order] {
			if approved, ok := outcomes[step.ID]; !ok || !approved {
				return step
			}
		}
	}
	return nil
}

// ChainComplete reports whether every addressable step has an approving
// record and no step was rejected.
func ChainComplete(chain *domain.ApprovalChain, records []domain.ApprovalRecord) bool {
	if chain == nil || len(sanitizeSteps(chain.Steps)) == 0 {
		return false
	}
	if Rejected(chain, records) {
		return false
	}
	return NextStep(chain, records) == nil
}

// Rejected reports whether any addressable step carries a rejecting record.
func Rejected(chain *domain.ApprovalChain, records []domain.ApprovalRecord) bool {
	if chain == nil {
		return false
	}
	outcomes := make(map[string]bool, len(records))
	for _, record := range records {
		if _, seen := outcomes[record.StepID]; !seen {
			outcomes[record.StepID] = record.Approved
		}
	}
	for _, step := range sanitizeSteps(chain.Steps) {
		if approved, ok := outcomes[step.ID]; ok && !approved {
			return true
		}
	}
	return false
}

// StepByID returns the first step with the given id, honoring the
// first-occurrence-wins rule for duplicates.
func StepByID(chain *domain.ApprovalChain, stepID string) *domain.ApprovalChainStep {
	if chain == nil {
		return nil
	}
	for _, step := range sanitizeSteps(chain.Steps) {
		if step.ID == stepID {
			return step
		}
	}
	return nil
}

// sanitizeSteps drops nil entries and duplicate ids (first occurrence wins).
// Tolerating malformed chain data here is deliberate policy: a broken chain
// resolves to "nothing actionable", and data-integrity validation belongs to
// chain authoring.
func sanitizeSteps(steps []*domain.ApprovalChainStep) []*domain.ApprovalChainStep {
	out := make([]*domain.ApprovalChainStep, 0, len(steps))
	seen := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if step == nil {
			continue
		}
		if _, dup := seen[step.ID]; dup {
			continue
		}
		seen[step.ID] = struct{}{}
		out = append(out, step)
	}
	return out
}
