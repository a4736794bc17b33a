package workflow

import (
	"fmt"
	"strings"
)

// FieldEvaluator evaluates flat comparison expressions of the form
// "field == value" or "field != value" against the supplied context.
// Context values are compared by their fmt string form, so numeric
// payload values still match their literal spelling.
type FieldEvaluator struct{}

// Evaluate implements ConditionEvaluator.
func (FieldEvaluator) Evaluate(condition string, context map[string]any) (bool, error) {
	field, value, negate, err := splitCondition(condition)
	if err != nil {
		return false, err
	}
	actual, ok := context[field]
	if !ok {
		return negate, nil
	}
	equal := fmt.Sprintf("%v", actual) == value
	if negate {
		return !equal, nil
	}
	return equal, nil
}

func splitCondition(condition string) (field, value string, negate bool, err error) {
	op := "=="
	idx := strings.Index(condition, op)
	if idx < 0 {
		op = "!="
		idx = strings.Index(condition, op)
		negate = true
	}
	if idx < 0 {
		return "", "", false, fmt.Errorf("unsupported condition %q", condition)
	}
	field = strings.TrimSpace(condition[:idx])
	value = strings.Trim(strings.TrimSpace(condition[idx+len(op):]), `"'`)
	if field == "" {
		return "", "", false, fmt.Errorf("condition %q has no field", condition)
	}
	return field, value, negate, nil
}
