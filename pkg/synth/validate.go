package synth

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// decisionSchemaJSON is the structural contract for a synthesizer response:
// required fields, numeric ranges, and types. The decision_prediction enum
// itself is validated loosely here (non-empty string) and mapped onto
// domain.Decision case-insensitively by parseDecision, since models vary the
// casing and phrasing ("Pend for More Info" vs "pend") more than a strict
// schema enum tolerates.
const decisionSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["approval_likelihood_percent", "decision_prediction", "confidence_score", "clinical_rationale"],
	"properties": {
		"approval_likelihood_percent": {"type": "number", "minimum": 0, "maximum": 100},
		"decision_prediction": {"type": "string", "minLength": 1},
		"confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
		"clinical_rationale": {"type": "string", "minLength": 1},
		"identified_gaps": {"type": "array", "items": {"type": "string"}}
	}
}`

const decisionSchemaURL = "https://pa-orchestrator.schemas.local/synth/decision.schema.json"

var (
	decisionSchemaOnce sync.Once
	decisionSchema     *jsonschema.Schema
	decisionSchemaErr  error
)

func compiledDecisionSchema() (*jsonschema.Schema, error) {
	decisionSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(decisionSchemaURL, strings.NewReader(decisionSchemaJSON)); err != nil {
			decisionSchemaErr = fmt.Errorf("synth: load decision schema: %w", err)
			return
		}
		decisionSchema, decisionSchemaErr = c.Compile(decisionSchemaURL)
	})
	return decisionSchema, decisionSchemaErr
}

// rawDecision mirrors the JSON schema given to the model. Fields are typed
// loosely (any) where the wire value's shape needs its own validation rather
// than relying on json.Unmarshal to fail closed.
type rawDecision struct {
	ApprovalLikelihoodPercent any      `json:"approval_likelihood_percent"`
	DecisionPrediction        string   `json:"decision_prediction"`
	ConfidenceScore           any      `json:"confidence_score"`
	ClinicalRationale         string   `json:"clinical_rationale"`
	IdentifiedGaps            []string `json:"identified_gaps"`
}

// extractJSONObject finds the first balanced {...} in text, tolerating a
// model that wraps its JSON in prose or a code fence despite instructions.
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("synth: no JSON object found in response")
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("synth: unbalanced JSON object in response")
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// validateDecision parses a model response and validates it against
// decisionSchemaJSON: required fields, approval_likelihood_percent in
// [0,100], confidence_score in [0,1], and a non-empty rationale.
// decision_prediction is then mapped onto domain.Decision by parseDecision
// as a thin post-validation step, since the model's wording
// ("Pend for More Info" vs "pend") varies more than a schema enum tolerates.
func validateDecision(response string) (Result, error) {
	obj, err := extractJSONObject(response)
	if err != nil {
		return Result{}, err
	}

	schema, err := compiledDecisionSchema()
	if err != nil {
		return Result{}, err
	}

	var asMap map[string]any
	if err := json.Unmarshal([]byte(obj), &asMap); err != nil {
		return Result{}, fmt.Errorf("synth: decode decision: %w", err)
	}
	if err := schema.Validate(asMap); err != nil {
		return Result{}, fmt.Errorf("synth: decision failed schema validation: %w", err)
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Result{}, fmt.Errorf("synth: decode decision: %w", err)
	}

	decision, ok := parseDecision(raw.DecisionPrediction)
	if !ok {
		return Result{}, fmt.Errorf("synth: unrecognized decision_prediction: %q", raw.DecisionPrediction)
	}

	likelihood, _ := asFloat(raw.ApprovalLikelihoodPercent)
	confidence, _ := asFloat(raw.ConfidenceScore)

	return Result{
		Decision:           decision,
		ApprovalLikelihood: likelihood,
		ConfidenceScore:    confidence,
		ClinicalRationale:  raw.ClinicalRationale,
		IdentifiedGaps:     raw.IdentifiedGaps,
	}, nil
}

func parseDecision(s string) (domain.Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return domain.DecisionApprove, true
	case "deny":
		return domain.DecisionDeny, true
	case "pend for more info", "pend":
		return domain.DecisionPend, true
	default:
		return "", false
	}
}
