package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "default expression",
			expr:      DefaultReviewExpression,
			wantError: false,
		},
		{
			name:      "size comparison",
			expr:      `size(findings) > 2`,
			wantError: false,
		},
		{
			name:      "sender kind",
			expr:      `sender_kind == "pro" && contains_contact_info`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `text_length + 1`,
			wantError: true,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `payload.status == "active"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompile_EmptyUsesDefault(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	policy, err := eval.Compile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultReviewExpression, policy.Expression())
}

func TestCompile_RejectsNonBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.Compile(`size(findings)`)
	assert.Error(t, err)
}

func TestPolicy_Evaluate(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	heuristic := ReviewInput{
		Findings: []FindingInput{
			{Rule: "phone", Category: "phone"},
			{Rule: "keyword_number", Category: "phone", Heuristic: true},
		},
		ContainsContactInfo: true,
		SenderKind:          "pro",
		ReceiverKind:        "user",
		TextLength:          42,
	}
	certain := ReviewInput{
		Findings:            []FindingInput{{Rule: "email", Category: "email"}},
		ContainsContactInfo: true,
		SenderKind:          "user",
		ReceiverKind:        "pro",
		TextLength:          20,
	}
	clean := ReviewInput{SenderKind: "user", ReceiverKind: "pro", TextLength: 5}

	tests := []struct {
		name  string
		expr  string
		input ReviewInput
		want  bool
	}{
		{"default flags heuristic", DefaultReviewExpression, heuristic, true},
		{"default ignores certain", DefaultReviewExpression, certain, false},
		{"default ignores clean", DefaultReviewExpression, clean, false},
		{"category match", `findings.exists(f, f.category == "email")`, certain, true},
		{"count threshold", `size(findings) >= 2`, heuristic, true},
		{"sender kind", `sender_kind == "pro" && contains_contact_info`, heuristic, true},
		{"long messages only", `text_length > 100`, heuristic, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := eval.Compile(tt.expr)
			require.NoError(t, err)

			got, err := policy.Evaluate(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
