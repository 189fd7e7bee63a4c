package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values produced by the safety policy.
const (
	DecisionAllow    = "allow"
	DecisionEscalate = "escalate"
)

// Engine is the OPA safety policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the given policy module. The module must define data.safety_policy.decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.safety_policy.decision"),
		rego.Module("safety_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the policy decision for a declared emotional state and optional text.
func (e *Engine) Evaluate(ctx context.Context, emotion string, intensity int, text string) (string, error) {
	input := map[string]interface{}{
		"emotion":   strings.ToLower(emotion),
		"intensity": intensity,
		"text":      text,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// Escalate reports whether the policy escalates the given state.
func (e *Engine) Escalate(ctx context.Context, emotion string, intensity int, text string) (bool, error) {
	decision, err := e.Evaluate(ctx, emotion, intensity, text)
	if err != nil {
		return false, err
	}
	return decision == DecisionEscalate, nil
}

// DefaultPolicy escalates very high intensity and messages containing crisis language.
const DefaultPolicy = `
package safety_policy

default decision = "allow"

crisis_terms = [
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"self-harm",
	"hurt myself",
	"no reason to live",
]

decision = "escalate" {
	input.intensity >= 9
}

decision = "escalate" {
	some i
	contains(lower(input.text), crisis_terms[i])
}
`
