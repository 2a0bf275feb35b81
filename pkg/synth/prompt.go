package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

const jsonSchemaInstruction = `Respond with a single JSON object only, no surrounding prose, with exactly these fields:
{
  "approval_likelihood_percent": <number 0-100>,
  "decision_prediction": "Approve" | "Deny" | "Pend for More Info",
  "confidence_score": <number 0-1>,
  "clinical_rationale": "<non-empty string>",
  "identified_gaps": ["<string>", ...]
}`

// estimateTokens approximates token count the way the synthesizer's
// provider-contract budgeting does: 1.3 tokens per whitespace-delimited word.
func estimateTokens(s string) int {
	words := len(strings.Fields(s))
	return int(1.3 * float64(words))
}

func formatPatientProfile(p *domain.PatientRecord) string {
	if p == nil {
		return "Patient record unavailable."
	}
	var labs []string
	for k, v := range p.Labs {
		labs = append(labs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(labs)
	adherence := "unknown"
	if p.AdherenceScore != nil {
		adherence = fmt.Sprintf("%.2f", *p.AdherenceScore)
	}
	return fmt.Sprintf(
		"age=%d gender=%s diagnoses=[%s] medications=[%s] labs=[%s] provider=%s adherence=%s",
		p.Age, p.Gender,
		strings.Join(p.DiagnosesICD10, ", "),
		strings.Join(p.MedicationHistory, ", "),
		strings.Join(labs, ", "),
		p.ProviderType, adherence,
	)
}

func formatDrugInfo(d *domain.DrugInformation) string {
	if d == nil {
		return "Drug information unavailable."
	}
	return fmt.Sprintf(
		"name=%s class=%s indications=[%s] contraindications=[%s] warnings=[%s]",
		d.CanonicalName, d.DrugClass,
		strings.Join(d.Indications, ", "),
		strings.Join(d.Contraindications, ", "),
		strings.Join(d.Warnings, ", "),
	)
}

func formatPolicyInfo(p *domain.InsurerPolicy) string {
	if p == nil {
		return "Policy information unavailable."
	}
	return fmt.Sprintf("insurer=%s drug=%s status=%s tier=%d", p.Insurer, p.DrugName, p.Status, p.Tier)
}

func formatSafety(s *domain.DrugSafetySummary) string {
	if s == nil {
		return "Safety assessment unavailable."
	}
	return fmt.Sprintf("safety_profile=%s warnings=%d contraindications=%d", s.SafetyProfile, len(s.Warnings), len(s.Contraindications))
}

func formatGuidelines(items []domain.GuidelineItem, limit int) string {
	if len(items) == 0 {
		return "No guidelines available."
	}
	if limit > len(items) {
		limit = len(items)
	}
	var b strings.Builder
	for i := 0; i < limit; i++ {
		g := items[i]
		fmt.Fprintf(&b, "- [%s %d] (relevance %.2f) %s\n", g.Source, g.Year, g.RelevanceScore, g.Text)
	}
	return b.String()
}

// evidenceSummaryByType groups evidence items under their type heading,
// each annotated with support/oppose and confidence.
func evidenceSummaryByType(items []domain.EvidenceItem) string {
	grouped := make(map[domain.EvidenceType][]domain.EvidenceItem)
	var order []domain.EvidenceType
	for _, it := range items {
		if _, seen := grouped[it.Type]; !seen {
			order = append(order, it.Type)
		}
		grouped[it.Type] = append(grouped[it.Type], it)
	}
	var b strings.Builder
	for _, typ := range order {
		fmt.Fprintf(&b, "%s:\n", typ)
		for _, it := range grouped[typ] {
			stance := "opposes"
			if it.SupportsApproval {
				stance = "supports"
			}
			fmt.Fprintf(&b, "  - (%s, confidence %.2f) %s\n", stance, it.Confidence, it.Content)
		}
	}
	return b.String()
}

// buildAdvancedPrompt is the full prompt sent to the primary model.
func buildAdvancedPrompt(ac domain.AnalysisContext, evidence []domain.EvidenceItem, preliminaryScore float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prior authorization review for case %s.\n", ac.DecisionID)
	fmt.Fprintf(&b, "Urgency: %s\n", ac.Urgency)
	fmt.Fprintf(&b, "Preliminary evidence-weighted score: %.3f\n\n", preliminaryScore)
	fmt.Fprintf(&b, "Patient profile: %s\n\n", formatPatientProfile(ac.Patient))
	fmt.Fprintf(&b, "Drug information: %s\n\n", formatDrugInfo(ac.DrugInfo))
	fmt.Fprintf(&b, "Policy: %s\n\n", formatPolicyInfo(ac.Policy))
	fmt.Fprintf(&b, "Evidence summary:\n%s\n", evidenceSummaryByType(evidence))
	fmt.Fprintf(&b, "Safety assessment: %s\n\n", formatSafety(ac.Safety))
	fmt.Fprintf(&b, "Top clinical guidelines:\n%s\n", formatGuidelines(ac.Guidelines, 3))
	b.WriteString(jsonSchemaInstruction)
	return b.String()
}

// buildSimplifiedPrompt condenses context to the top 3 supporting and top 3
// opposing evidence items, used once the advanced prompt would overrun
// maxPromptTokens or after a primary-model failure.
func buildSimplifiedPrompt(ac domain.AnalysisContext, evidence []domain.EvidenceItem, preliminaryScore float64) string {
	var supporting, opposing []domain.EvidenceItem
	for _, it := range evidence {
		if it.SupportsApproval {
			supporting = append(supporting, it)
		} else {
			opposing = append(opposing, it)
		}
	}
	sort.Slice(supporting, func(i, j int) bool { return supporting[i].Confidence > supporting[j].Confidence })
	sort.Slice(opposing, func(i, j int) bool { return opposing[i].Confidence > opposing[j].Confidence })
	if len(supporting) > 3 {
		supporting = supporting[:3]
	}
	if len(opposing) > 3 {
		opposing = opposing[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Condensed prior authorization review for case %s, drug %s.\n", ac.DecisionID, ac.DrugName)
	fmt.Fprintf(&b, "Preliminary score: %.3f\n\n", preliminaryScore)
	b.WriteString("Supporting evidence:\n")
	b.WriteString(evidenceSummaryByType(supporting))
	b.WriteString("Opposing evidence:\n")
	b.WriteString(evidenceSummaryByType(opposing))
	b.WriteString("\n")
	b.WriteString(jsonSchemaInstruction)
	return b.String()
}

// continuationPrompt asks the model to finish a response that incompleteness
// detection flagged as cut off.
func continuationPrompt() string {
	return "Your previous response appears to be cut off. Continue exactly where you left off; do not repeat earlier content."
}
