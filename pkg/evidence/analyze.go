package evidence

import (
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// Result is the Evidence Engine's output: the ordered evidence items plus
// the two scalar scores derived from them.
type Result struct {
	Items            []domain.EvidenceItem
	PreliminaryScore float64
	Confidence       float64
}

// Analyze runs every category scorer over ctx and folds the results into a
// Result. Categories whose inputs are absent from ctx silently contribute no
// evidence item rather than erroring — a partial context is expected during
// degraded operation. The clinical-appropriateness item is the exception: it
// is always emitted, scored from its 0.5 baseline when patient or drug data
// is missing.
func (e *Engine) Analyze(ctx domain.AnalysisContext) Result {
	ts := e.now()

	var items []domain.EvidenceItem
	items = append(items, criteriaEvidence(ctx.CoverageDecision, ts)...)
	items = append(items, guidelineEvidence(ctx.Guidelines, ts)...)

	if interactionItem := interactionEvidence(ctx.InteractionCheck, ts); interactionItem != nil {
		items = append(items, *interactionItem)
	}
	if safetyItem := safetyEvidence(ctx.Safety, ctx.Patient, ts); safetyItem != nil {
		items = append(items, *safetyItem)
	}
	if historyItem := historyEvidence(ctx.Patient, ctx.DrugInfo, ctx.DrugName, ts); historyItem != nil {
		items = append(items, *historyItem)
	}
	items = append(items, appropriatenessEvidence(ctx.Patient, ctx.DrugInfo, ts))

	if urgency := strings.ToLower(ctx.Urgency); urgency == "urgent" || urgency == "emergency" {
		items = append(items, domain.NewEvidenceItem(
			"urgency_assessment",
			domain.EvidencePriority,
			strings.ToUpper(urgency[:1])+urgency[1:]+" request - expedited review warranted",
			0.05,
			true,
			1.0,
			ts,
		))
	}

	completeness := completenessInputs{
		hasPatient:    ctx.Patient != nil && !ctx.Patient.IsEmpty(),
		hasDrugInfo:   ctx.DrugInfo != nil && len(ctx.DrugInfo.Indications) > 0,
		hasPolicy:     ctx.Policy != nil,
		hasGuidelines: len(ctx.Guidelines) > 0,
		hasCriteria:   ctx.CoverageDecision != nil,
		hasLabs:       ctx.Patient != nil && ctx.Patient.Labs != nil,
		hasDrugSafety: ctx.Safety != nil,
	}

	return Result{
		Items:            items,
		PreliminaryScore: WeightedScore(items),
		Confidence:       ConfidenceScore(items, completeness),
	}
}
