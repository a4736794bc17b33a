package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldEvaluatorEquality(t *testing.T) {
	eval := FieldEvaluator{}

	matched, err := eval.Evaluate(`priority == "CRITICAL"`, map[string]any{"priority": "CRITICAL"})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = eval.Evaluate(`priority == CRITICAL`, map[string]any{"priority": "HIGH"})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestFieldEvaluatorInequality(t *testing.T) {
	eval := FieldEvaluator{}

	matched, err := eval.Evaluate(`status != CLOSED`, map[string]any{"status": "NEW"})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = eval.Evaluate(`status != CLOSED`, map[string]any{"status": "CLOSED"})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestFieldEvaluatorNonStringValues(t *testing.T) {
	eval := FieldEvaluator{}

	matched, err := eval.Evaluate("amount == 500", map[string]any{"amount": 500})
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestFieldEvaluatorMissingField(t *testing.T) {
	eval := FieldEvaluator{}

	matched, err := eval.Evaluate("owner == alice", map[string]any{})
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = eval.Evaluate("owner != alice", map[string]any{})
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestFieldEvaluatorMalformedCondition(t *testing.T) {
	eval := FieldEvaluator{}

	_, err := eval.Evaluate("priority is high", nil)
	assert.Error(t, err)

	_, err = eval.Evaluate("== HIGH", nil)
	assert.Error(t, err)
}
