package policysvc

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// celEvidenceEnv declares the variables a custom_cel criterion expression
// may reference: the same fields evalDiagnosis/evalLabValue/etc. see,
// projected into a single dynamic "patient" map plus a "quantity" int.
var celEvidenceEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("patient", cel.DynType),
		cel.Variable("quantity", cel.IntType),
	)
})

// celEvaluator compiles and caches custom_cel criterion expressions. It is
// safe for concurrent use; programs are compiled once per distinct
// expression string and reused thereafter.
type celEvaluator struct {
	mu  sync.RWMutex
	prg map[string]cel.Program
}

var defaultCELEvaluator = &celEvaluator{prg: make(map[string]cel.Program)}

func (e *celEvaluator) eval(expr string, input map[string]any) (bool, error) {
	env, err := celEvidenceEnv()
	if err != nil {
		return false, fmt.Errorf("cel environment: %w", err)
	}

	e.mu.RLock()
	prg, hit := e.prg[expr]
	e.mu.RUnlock()

	if !hit {
		e.mu.Lock()
		if prg, hit = e.prg[expr]; !hit {
			ast, issues := env.Compile(expr)
			if issues != nil && issues.Err() != nil {
				e.mu.Unlock()
				return false, fmt.Errorf("compile: %w", issues.Err())
			}
			p, err := env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
			if err != nil {
				e.mu.Unlock()
				return false, fmt.Errorf("program: %w", err)
			}
			e.prg[expr] = p
			prg = p
		}
		e.mu.Unlock()
	}

	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("custom_cel expression did not evaluate to a bool")
	}
	return val, nil
}

func evidenceToCELInput(ev PatientEvidence) map[string]any {
	patient := map[string]any{
		"diagnoses_icd10":    ev.DiagnosesICD10,
		"medication_history": ev.MedicationHistory,
		"labs":               ev.Labs,
		"provider_type":      ev.ProviderType,
	}
	if ev.Age != nil {
		patient["age"] = int64(*ev.Age)
	} else {
		patient["age"] = int64(0)
	}
	quantity := int64(0)
	if ev.RequestedQuantity != nil {
		quantity = int64(*ev.RequestedQuantity)
	}
	return map[string]any{"patient": patient, "quantity": quantity}
}

func evalCustomCEL(c domain.Criterion, ev PatientEvidence) domain.CriterionEvaluation {
	if c.Expression == "" {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnparseable,
			Message:   "custom_cel criterion has no expression",
		}
	}

	met, err := defaultCELEvaluator.eval(c.Expression, evidenceToCELInput(ev))
	if err != nil {
		return domain.CriterionEvaluation{
			Criterion: c,
			Outcome:   domain.OutcomeUnparseable,
			Message:   fmt.Sprintf("custom_cel evaluation failed: %v", err),
			Details:   map[string]any{"expression": c.Expression},
		}
	}

	outcome := domain.OutcomeUnmet
	message := "custom criterion not met"
	if met {
		outcome = domain.OutcomeMet
		message = "custom criterion met"
	}
	return domain.CriterionEvaluation{
		Criterion: c,
		Outcome:   outcome,
		Message:   message,
		Details:   map[string]any{"expression": c.Expression},
	}
}
