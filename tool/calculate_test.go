package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calc(t *testing.T, expr string) Result {
	t.Helper()
	spec := NewCalculateSpec()
	return spec.Handler(context.Background(), map[string]any{"expression": expr})
}

func TestCalculate_Basic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 2", "4"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"-5 + 3", "-2"},
		{"2 * -3", "-6"},
		{"1.5 + 2.25", "3.75"},
		{"((1))", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res := calc(t, tt.expr)
			require.True(t, res.OK, res.Message)
			assert.Equal(t, tt.want, res.Payload)
		})
	}
}

func TestCalculate_DivisionByZero(t *testing.T) {
	res := calc(t, "1/0")
	assert.False(t, res.OK)
	assert.Equal(t, CodeDivisionByZero, res.Code)
}

func TestCalculate_DisallowedCharacters(t *testing.T) {
	// Rejected by the charset gate before any parsing.
	for _, expr := range []string{"__import__('os')", "2 + x", "eval(1)", "1;2"} {
		res := calc(t, expr)
		assert.False(t, res.OK, expr)
		assert.Equal(t, CodeInvalidExpression, res.Code, expr)
	}
}

func TestCalculate_SyntaxErrors(t *testing.T) {
	for _, expr := range []string{"", "   ", "1 +", "(1", "1 2", "*3", "1..2"} {
		res := calc(t, expr)
		assert.False(t, res.OK, expr)
		assert.Equal(t, CodeInvalidExpression, res.Code, expr)
	}
}

func TestCalculate_ResultOutOfRange(t *testing.T) {
	res := calc(t, "1000000000 * 10000000")
	assert.False(t, res.OK)
	assert.Equal(t, CodeResultOutOfRange, res.Code)
}

func TestCalculate_MissingExpressionArgument(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculateSpec()))

	res := r.Invoke(context.Background(), "calculate", map[string]any{})
	assert.Equal(t, CodeInvalidArguments, res.Code)
}
