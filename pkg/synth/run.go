package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/llm"
)

// Synthesize converts an analysis context and its evidence into a
// structured decision: primary model with the full prompt, fallback model
// with the condensed prompt, rule-based determination if both fail.
func (s *Synthesizer) Synthesize(ctx context.Context, ac domain.AnalysisContext, evidence []domain.EvidenceItem, preliminaryScore float64) Result {
	advanced := buildAdvancedPrompt(ac, evidence, preliminaryScore)
	simplified := buildSimplifiedPrompt(ac, evidence, preliminaryScore)

	primaryPrompt := advanced
	if estimateTokens(primaryPrompt) > maxPromptTokens {
		primaryPrompt = simplified
	}

	if s.Primary != nil {
		if result, tokens, err := s.attempt(ctx, s.Primary, primaryPrompt); err == nil {
			result.ModelTier = ModelTierPrimary
			result.TokensUsed = tokens
			return result
		}
	}

	if s.Fallback != nil {
		if result, tokens, err := s.attempt(ctx, s.Fallback, simplified); err == nil {
			result.ModelTier = ModelTierFallback
			result.TokensUsed = tokens
			return result
		}
	}

	return ruleBasedDecision(preliminaryScore, evidence)
}

// attempt runs the retry-with-exponential-backoff, continuation-on-
// incompleteness discipline against a single client, returning the first
// validated decision or the last error once retries are exhausted.
func (s *Synthesizer) attempt(ctx context.Context, client llm.Client, prompt string) (Result, int, error) {
	var lastErr error
	tokensUsed := 0

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if err := s.Sleep(ctx, backoff); err != nil {
				return Result{}, tokensUsed, err
			}
		}

		messages := []llm.Message{{Role: "user", Content: prompt}}
		resp, err := client.Chat(ctx, messages, nil)
		if err != nil {
			lastErr = fmt.Errorf("synth: chat call failed: %w", err)
			continue
		}
		tokensUsed += estimateTokens(prompt) + estimateTokens(resp.Content)

		content := resp.Content
		if isIncomplete(content) {
			continuation, err := client.Chat(ctx, []llm.Message{
				{Role: "user", Content: prompt},
				{Role: "assistant", Content: content},
				{Role: "user", Content: continuationPrompt()},
			}, nil)
			if err != nil {
				lastErr = fmt.Errorf("synth: continuation call failed: %w", err)
				continue
			}
			tokensUsed += estimateTokens(continuation.Content)
			content = strings.Join([]string{content, continuation.Content}, "\n\n")
		}

		result, err := validateDecision(content)
		if err != nil {
			lastErr = err
			continue
		}
		return result, tokensUsed, nil
	}

	return Result{}, tokensUsed, lastErr
}
