package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/newsstream/internal/domain"
)

// Decisions
const (
	DecisionAllow  = "allow"
	DecisionReject = "reject"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.filter_policy.result"),
		rego.Module("filter_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy against input.
// Returns: decision (allow, reject), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return "", "", fmt.Errorf("policy result has no decision: %v", val)
		}
		return decision, reason, nil
	default:
		return "", "", fmt.Errorf("unexpected policy result type %T", val)
	}
}

// FilterInput is the policy input for a filter query.
type FilterInput struct {
	Date      string `json:"date"`
	DateValid bool   `json:"date_valid"`
	Day       string `json:"day"`
	Yesterday string `json:"yesterday"`
}

// NewFilterInput builds the input for a raw date parameter. parsed is the
// zero time when raw could not be parsed.
func NewFilterInput(raw string, parsed, yesterday time.Time) FilterInput {
	in := FilterInput{
		Date:      raw,
		Yesterday: yesterday.Format(domain.DateLayout),
	}
	if !parsed.IsZero() {
		in.DateValid = true
		in.Day = parsed.Format(domain.DateLayout)
	}
	return in
}

// AdmitFilter reports whether a filter query for the input may proceed.
func (e *Engine) AdmitFilter(ctx context.Context, in FilterInput) (bool, string, error) {
	decision, reason, err := e.Evaluate(ctx, in)
	if err != nil {
		return false, "", err
	}
	return decision == DecisionAllow, reason, nil
}

// DefaultPolicy is the default policy content.
// Dates compare as YYYY-MM-DD strings.
const DefaultPolicy = `
package filter_policy

default result = {"decision": "allow", "reason": ""}

result = {"decision": "reject", "reason": "date parameter is required (YYYY-MM-DD)"} {
	input.date == ""
}

result = {"decision": "reject", "reason": "date must be in YYYY-MM-DD format"} {
	input.date != ""
	not input.date_valid
}

# Yesterday and later are served by the stream, not the filter.
result = {"decision": "reject", "reason": msg} {
	input.date_valid
	input.day >= input.yesterday
	msg := sprintf("date must be before %s", [input.yesterday])
}
`
