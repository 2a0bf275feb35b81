package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/patientsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
)

// gatherTimeout bounds each independent gather subtask; expiration yields an
// empty result for that subtask and a warning rather than failing the whole
// request.
const gatherTimeout = 30 * time.Second

// gatherResult holds every specialist call's output plus warnings for
// subtasks that timed out or errored, so the orchestrator can continue with
// a partial context rather than failing outright.
type gatherResult struct {
	Patient          *domain.PatientRecord
	DrugInfo         *domain.DrugInformation
	Policy           *domain.InsurerPolicy
	CoverageDecision *domain.CoverageDecision
	Guidelines       []domain.GuidelineItem
	Safety           *domain.DrugSafetySummary
	InteractionCheck []domain.InteractionResult

	warnMu   sync.Mutex
	Warnings []string
}

func (r *gatherResult) warn(msg string) {
	r.warnMu.Lock()
	r.Warnings = append(r.Warnings, msg)
	r.warnMu.Unlock()
}

// gather runs the data-gathering phase: patient lookup proceeds alongside
// drug info, policy, guideline, and safety lookups; the interaction check
// is dispatched only after patient medication history is known (the one
// ordered edge). Each subtask has its own gatherTimeout budget and reports
// a warning rather than failing the batch on expiration.
func (o *Orchestrator) gather(ctx context.Context, patientID, drugName, insurerID, indication string) *gatherResult {
	result := &gatherResult{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.runWithTimeout(gctx, func(taskCtx context.Context) error {
			r, err := o.Patient.GetRecord(taskCtx, patientID, "orchestrator", patientsvc.RoleSystem)
			if err != nil {
				return err
			}
			result.Patient = r
			return nil
		})
		if err != nil {
			result.warn(fmt.Sprintf("patient_lookup: %v", err))
		}
		return nil
	})

	g.Go(func() error {
		err := o.runWithTimeout(gctx, func(taskCtx context.Context) error {
			info, _, err := o.Drug.Info(taskCtx, drugName)
			if err != nil {
				return err
			}
			result.DrugInfo = &info
			return nil
		})
		if err != nil {
			result.warn(fmt.Sprintf("drug_info: %v", err))
		}
		return nil
	})

	g.Go(func() error {
		err := o.runWithTimeout(gctx, func(taskCtx context.Context) error {
			safety, err := o.Drug.Safety(taskCtx, drugName)
			if err != nil {
				return err
			}
			result.Safety = &safety
			return nil
		})
		if err != nil {
			result.warn(fmt.Sprintf("drug_safety: %v", err))
		}
		return nil
	})

	g.Go(func() error {
		err := o.runWithTimeout(gctx, func(taskCtx context.Context) error {
			policy, _, err := o.Policy.GetPolicy(insurerID, drugName)
			if err != nil {
				return err
			}
			result.Policy = &policy
			return nil
		})
		if err != nil {
			result.warn(fmt.Sprintf("policy_lookup: %v", err))
		}
		return nil
	})

	g.Go(func() error {
		err := o.runWithTimeout(gctx, func(taskCtx context.Context) error {
			result.Guidelines = o.Guidelines.ForDrug(drugName, indication)
			return nil
		})
		if err != nil {
			result.warn(fmt.Sprintf("guideline_lookup: %v", err))
		}
		return nil
	})

	_ = g.Wait()

	// Coverage criteria check and the interaction check both depend on
	// outputs from the parallel phase above (policy, patient medication
	// history) so they run after it, the interaction check ordered after
	// patient retrieval per the serial edge.
	if result.Policy != nil {
		ev := policysvc.EvidenceFromPatient(result.Patient)
		if err := o.runWithTimeout(ctx, func(taskCtx context.Context) error {
			decision, err := o.Policy.CheckCoverage(insurerID, drugName, ev)
			if err != nil {
				return err
			}
			result.CoverageDecision = &decision
			return nil
		}); err != nil {
			result.warn(fmt.Sprintf("coverage_check: %v", err))
		}
	}

	if result.Patient != nil && len(result.Patient.MedicationHistory) > 0 {
		names := append([]string{drugName}, result.Patient.MedicationHistory...)
		if err := o.runWithTimeout(ctx, func(taskCtx context.Context) error {
			interactions, _, err := o.Drug.CheckInteractions(names)
			if err != nil {
				return err
			}
			result.InteractionCheck = interactions
			return nil
		}); err != nil {
			result.warn(fmt.Sprintf("interaction_check: %v", err))
		}
	}

	return result
}

// runWithTimeout runs fn under a context bounded by gatherTimeout, treating
// deadline expiration as a warning-worthy error rather than panicking the
// caller.
func (o *Orchestrator) runWithTimeout(ctx context.Context, fn func(context.Context) error) error {
	taskCtx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()
	return fn(taskCtx)
}
