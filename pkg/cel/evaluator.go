// Package cel compiles and evaluates moderation policies written in the
// Common Expression Language.
package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// DefaultReviewExpression flags messages in which at least one finding came
// from a heuristic rule.
const DefaultReviewExpression = `findings.exists(f, f.heuristic)`

// FindingInput is the view of one redaction finding exposed to expressions
// as an element of `findings`.
type FindingInput struct {
	Rule      string
	Category  string
	Heuristic bool
}

// ReviewInput is the activation of a review policy.
type ReviewInput struct {
	Findings            []FindingInput
	ContainsContactInfo bool
	SenderKind          string
	ReceiverKind        string
	TextLength          int
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("findings", cel.ListType(cel.MapType(cel.StringType, cel.DynType))),
		cel.Variable("contains_contact_info", cel.BoolType),
		cel.Variable("sender_kind", cel.StringType),
		cel.Variable("receiver_kind", cel.StringType),
		cel.Variable("text_length", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// ValidateExpression checks that expression compiles and yields a bool.
func (e *Evaluator) ValidateExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("review expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

// Policy is a compiled review expression. It is safe for concurrent use.
type Policy struct {
	expression string
	program    cel.Program
}

// Compile builds a Policy. An empty expression compiles DefaultReviewExpression.
func (e *Evaluator) Compile(expression string) (*Policy, error) {
	if expression == "" {
		expression = DefaultReviewExpression
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("review expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Policy{expression: expression, program: program}, nil
}

func (p *Policy) Expression() string {
	return p.expression
}

// Evaluate reports whether the input needs manual review.
func (p *Policy) Evaluate(ctx context.Context, in ReviewInput) (bool, error) {
	findings := make([]interface{}, 0, len(in.Findings))
	for _, f := range in.Findings {
		findings = append(findings, map[string]interface{}{
			"rule":      f.Rule,
			"category":  f.Category,
			"heuristic": f.Heuristic,
		})
	}

	vars := map[string]interface{}{
		"findings":              findings,
		"contains_contact_info": in.ContainsContactInfo,
		"sender_kind":           in.SenderKind,
		"receiver_kind":         in.ReceiverKind,
		"text_length":           in.TextLength,
	}

	result, _, err := p.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
