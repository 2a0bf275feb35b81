package evidence

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// positiveGuidelineTerms and negativeGuidelineTerms are the keyword sets the
// engine scans guideline text for to derive a net support/oppose signal.
var (
	positiveGuidelineTerms = []string{
		"recommended", "first-line", "second-line", "preferred", "indicated",
		"effective", "beneficial", "appropriate", "evidence supports",
		"guidelines recommend", "standard of care",
	}
	negativeGuidelineTerms = []string{
		"contraindicated", "avoid", "caution", "not recommended", "harmful",
		"adverse", "discontinued", "black box warning", "insufficient evidence",
		"not indicated",
	}
)

const maxGuidelineTextLen = 150

// guidelineEvidence scans up to the top 3 guidelines, scoring each by
// keyword density and splitting the guideline_support weight quota evenly
// across them.
func guidelineEvidence(guidelines []domain.GuidelineItem, ts time.Time) []domain.EvidenceItem {
	if len(guidelines) == 0 {
		return nil
	}
	top := guidelines
	if len(top) > 3 {
		top = top[:3]
	}
	quota := Weights["guideline_support"] / float64(min(len(guidelines), 3))

	items := make([]domain.EvidenceItem, 0, len(top))
	for i, g := range top {
		text := strings.ToLower(g.Text)
		source := g.Source
		if source == "" {
			source = fmt.Sprintf("Guideline %d", i+1)
		}

		positive := countTermMatches(text, positiveGuidelineTerms)
		negative := countTermMatches(text, negativeGuidelineTerms)
		supports := positive-negative > 0

		wordCount := len(strings.Fields(text))
		if wordCount == 0 {
			wordCount = 1
		}
		density := float64(positive+negative) / float64(wordCount)
		confidence := g.RelevanceScore * (1 + density)
		if confidence > 0.95 {
			confidence = 0.95
		}

		truncated := text
		if len(text) > maxGuidelineTextLen {
			truncated = text[:maxGuidelineTextLen] + "..."
		}

		items = append(items, domain.NewEvidenceItem(
			"clinical_guideline_"+source,
			domain.EvidenceGuidelineSupport,
			fmt.Sprintf("%s (relevance: %.0f%%): %s", source, g.RelevanceScore*100, truncated),
			quota,
			supports,
			confidence,
			ts,
		))
	}
	return items
}

func countTermMatches(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			n++
		}
	}
	return n
}
