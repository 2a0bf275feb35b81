package policysvc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// PatientEvidence is the subset of patient data a criterion handler needs.
// It is distinct from domain.PatientRecord so callers can evaluate
// criteria against partial or synthetic evidence (e.g. a hypothetical
// quantity request) without constructing a full record.
type PatientEvidence struct {
	Age               *int
	DiagnosesICD10    []string
	MedicationHistory []string
	Labs              map[string]string
	ProviderType      string
	RequestedQuantity *int
}

// EvidenceFromPatient projects a domain.PatientRecord into PatientEvidence.
func EvidenceFromPatient(p *domain.PatientRecord) PatientEvidence {
	if p == nil {
		return PatientEvidence{}
	}
	age := p.Age
	return PatientEvidence{
		Age:               &age,
		DiagnosesICD10:    p.DiagnosesICD10,
		MedicationHistory: p.MedicationHistory,
		Labs:              p.Labs,
		ProviderType:      p.ProviderType,
		RequestedQuantity: p.RequestedQuantity,
	}
}

// evaluator checks one criterion against patient evidence.
type evaluator func(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation

var handlers = map[domain.CriterionKind]evaluator{
	domain.CriterionDiagnosis:     evalDiagnosis,
	domain.CriterionStepTherapy:   evalStepTherapy,
	domain.CriterionLabValue:      evalLabValue,
	domain.CriterionAgeLimit:      evalAgeLimit,
	domain.CriterionQuantityLimit: evalQuantityLimit,
	domain.CriterionProviderType:  evalProviderType,
	domain.CriterionCustomCEL:     evalCustomCEL,
}

// Evaluate dispatches a criterion to its kind-specific handler. A kind
// with no registered handler evaluates as unparseable rather than panicking
// or silently passing.
func Evaluate(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	fn, ok := handlers[c.Kind]
	if !ok {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnparseable,
			Message:   fmt.Sprintf("unknown criterion type: %s", c.Kind),
		}
	}
	return fn(c, ev)
}

func evalDiagnosis(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	required := make(map[string]struct{}, len(c.RequiredCodes))
	for _, code := range c.RequiredCodes {
		required[code] = struct{}{}
	}
	var matching []string
	for _, code := range ev.DiagnosesICD10 {
		if _, ok := required[code]; ok {
			matching = append(matching, code)
		}
	}

	outcome := domain.OutcomeUnmet
	message := "patient missing required diagnosis"
	if len(matching) > 0 {
		outcome = domain.OutcomeMet
		message = fmt.Sprintf("patient has %d of required diagnoses", len(matching))
	}
	return domain.CriterionEvaluation{
		Criterion: c,
		Outcome:   outcome,
		Message:   message,
		Details: map[string]any{
			"required_codes": c.RequiredCodes,
			"matching_codes": matching,
		},
	}
}

func evalStepTherapy(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	if c.RequiredPriorDrug == "" {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnparseable,
			Message:   "criterion has no required_prior_drug",
		}
	}
	required := strings.ToLower(c.RequiredPriorDrug)
	hasTried := false
	for _, med := range ev.MedicationHistory {
		if strings.Contains(strings.ToLower(med), required) {
			hasTried = true
			break
		}
	}

	outcome := domain.OutcomeUnmet
	message := fmt.Sprintf("patient has not tried required medication: %s", c.RequiredPriorDrug)
	if hasTried {
		outcome = domain.OutcomeMet
		message = fmt.Sprintf("patient has tried %s", c.RequiredPriorDrug)
	}
	return domain.CriterionEvaluation{
		Criterion: c,
		Outcome:   outcome,
		Message:   message,
		Details: map[string]any{
			"required_drug":       c.RequiredPriorDrug,
			"patient_medications": ev.MedicationHistory,
		},
	}
}

var labUnitStrip = regexp.MustCompile(`[^0-9.\-]`)

func evalLabValue(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	raw, present := ev.Labs[c.RequiredTest]
	if !present {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   fmt.Sprintf("required lab test %q not found", c.RequiredTest),
			Details:   map[string]any{"required_test": c.RequiredTest, "test_present": false},
		}
	}
	if c.MinValue == nil && c.MaxValue == nil {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeMet,
			Message:   fmt.Sprintf("lab test %q documented", c.RequiredTest),
			Details:   map[string]any{"required_test": c.RequiredTest, "test_present": true, "patient_value": raw},
		}
	}

	cleaned := labUnitStrip.ReplaceAllString(raw, "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnparseable,
			Message:   "could not parse patient lab value",
			Details:   map[string]any{"required_test": c.RequiredTest, "patient_value": raw},
		}
	}

	if c.MinValue != nil && value < *c.MinValue {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   fmt.Sprintf("value %v below minimum %v", value, *c.MinValue),
			Details:   map[string]any{"required_test": c.RequiredTest, "patient_value": value},
		}
	}
	if c.MaxValue != nil && value > *c.MaxValue {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   fmt.Sprintf("value %v above maximum %v", value, *c.MaxValue),
			Details:   map[string]any{"required_test": c.RequiredTest, "patient_value": value},
		}
	}
	return domain.CriterionEvaluation{
		Criterion: c,
		Outcome:   domain.OutcomeMet,
		Message:   fmt.Sprintf("value %v within acceptable range", value),
		Details:   map[string]any{"required_test": c.RequiredTest, "patient_value": value},
	}
}

func evalAgeLimit(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	if ev.Age == nil {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   "patient age not provided",
		}
	}
	age := *ev.Age
	if c.MinAge != nil && age < *c.MinAge {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   fmt.Sprintf("patient age %d below minimum %d", age, *c.MinAge),
			Details:   map[string]any{"age": age},
		}
	}
	if c.MaxAge != nil && age > *c.MaxAge {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   fmt.Sprintf("patient age %d above maximum %d", age, *c.MaxAge),
			Details:   map[string]any{"age": age},
		}
	}
	return domain.CriterionEvaluation{
		Criterion: c,
		Outcome:   domain.OutcomeMet,
		Message:   fmt.Sprintf("patient age %d meets requirements", age),
		Details:   map[string]any{"age": age},
	}
}

func evalQuantityLimit(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	switch {
	case ev.RequestedQuantity == nil && c.MaxUnitsPerFill == nil:
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeMet,
			Message:   "no quantity specified and no limit defined",
		}
	case ev.RequestedQuantity == nil:
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   "requested quantity not specified but limit exists",
			Details:   map[string]any{"maximum": *c.MaxUnitsPerFill},
		}
	case c.MaxUnitsPerFill == nil:
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeMet,
			Message:   "quantity specified but no limit defined",
			Details:   map[string]any{"requested": *ev.RequestedQuantity},
		}
	}

	requested, max := *ev.RequestedQuantity, *c.MaxUnitsPerFill
	if requested <= max {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeMet,
			Message:   "quantity within limits",
			Details:   map[string]any{"requested": requested, "maximum": max},
		}
	}
	return domain.CriterionEvaluation{
		Criterion: c,
		Outcome:   domain.OutcomeUnmet,
		Message:   fmt.Sprintf("requested quantity %d exceeds maximum %d", requested, max),
		Details:   map[string]any{"requested": requested, "maximum": max},
	}
}

func evalProviderType(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	if ev.ProviderType == "" {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnmet,
			Message:   "provider type not specified",
		}
	}
	for _, allowed := range c.AllowedProviderTypes {
		if allowed == ev.ProviderType {
			return domain.CriterionEvaluation{
				Criterion: c,
				Outcome:   domain.OutcomeMet,
				Message:   "provider type acceptable",
				Details:   map[string]any{"provider_type": ev.ProviderType},
			}
		}
	}
	return domain.CriterionEvaluation{
		Criterion: c,
		Outcome:   domain.OutcomeUnmet,
		Message:   fmt.Sprintf("provider type %q not in allowed list", ev.ProviderType),
		Details:   map[string]any{"provider_type": ev.ProviderType, "allowed_types": c.AllowedProviderTypes},
	}
}

// RecommendationFor builds a human-readable remediation hint for an unmet
// criterion. It returns "" for criterion kinds that don't have a canned
// remediation (quantity_limit and provider_type callers compose their own
// message from the evaluation details).
func RecommendationFor(c domain.Criterion) string {
	switch c.Kind {
	case domain.CriterionDiagnosis:
		return "Obtain documentation for one of: " + strings.Join(c.RequiredCodes, ", ")
	case domain.CriterionStepTherapy:
		days := 90
		if c.DurationDays != nil {
			days = *c.DurationDays
		}
		return fmt.Sprintf("Trial of %s for %d days required", c.RequiredPriorDrug, days)
	case domain.CriterionLabValue:
		return "Obtain " + c.RequiredTest + " documentation"
	case domain.CriterionAgeLimit:
		return "Patient does not meet age requirements for this medication"
	default:
		return ""
	}
}
