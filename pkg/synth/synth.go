// Package synth turns an AnalysisContext and its evidence into a structured
// decision with a natural-language rationale. It tries a primary model, then
// a fallback model with a condensed prompt, and degrades to a deterministic
// rule-based decision if both fail. Selection is failure-driven rather than
// a complexity heuristic: every call starts at the primary and only moves to
// the fallback client on an exhausted retry budget or a validation failure,
// never on an up-front guess about how hard the case looks.
package synth

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/llm"
)

const maxPromptTokens = 4000

const (
	maxRetries = 3

	// ModelTierPrimary/Fallback/RuleBased record which attempt ultimately
	// produced the decision, surfaced on domain.AnalysisResult.ModelTierUsed.
	ModelTierPrimary  = "primary"
	ModelTierFallback = "fallback"
	ModelTierRuleBased = "rule_based"
)

// Result is a validated synthesizer decision plus bookkeeping the
// orchestrator folds into domain.AnalysisResult.
type Result struct {
	Decision           domain.Decision
	ApprovalLikelihood float64
	ConfidenceScore    float64
	ClinicalRationale  string
	IdentifiedGaps     []string
	ModelTier          string
	TokensUsed         int
}

// Synthesizer wraps a primary and fallback llm.Client with the retry,
// incompleteness-recovery, and rule-based fallback discipline.
type Synthesizer struct {
	Primary  llm.Client
	Fallback llm.Client

	// Clock and Sleep are overridable for deterministic tests.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewSynthesizer builds a Synthesizer with real time/sleep behavior.
func NewSynthesizer(primary, fallback llm.Client) *Synthesizer {
	return &Synthesizer{
		Primary:  primary,
		Fallback: fallback,
		Clock:    time.Now,
		Sleep:    sleepOrCancel,
	}
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
