package synth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/llm"
)

type stubClient struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubClient) Chat(ctx context.Context, messages []llm.Message, options *llm.SamplingOptions) (*llm.Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return &llm.Response{Content: s.responses[len(s.responses)-1]}, nil
	}
	return &llm.Response{Content: s.responses[i]}, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

const validJSON = `{"approval_likelihood_percent": 85, "decision_prediction": "Approve", "confidence_score": 0.9, "clinical_rationale": "Meets all documented criteria and guideline support is strong across the board.", "identified_gaps": []}`

func TestSynthesize_PrimarySuccess(t *testing.T) {
	s := &Synthesizer{
		Primary:  &stubClient{responses: []string{validJSON}},
		Fallback: &stubClient{responses: []string{validJSON}},
		Sleep:    noSleep,
	}
	result := s.Synthesize(context.Background(), domain.AnalysisContext{DecisionID: "d1"}, nil, 0.8)
	assert.Equal(t, ModelTierPrimary, result.ModelTier)
	assert.Equal(t, domain.DecisionApprove, result.Decision)
	assert.Equal(t, 85.0, result.ApprovalLikelihood)
}

func TestSynthesize_FallsBackWhenPrimaryErrors(t *testing.T) {
	s := &Synthesizer{
		Primary:  &stubClient{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}},
		Fallback: &stubClient{responses: []string{validJSON}},
		Sleep:    noSleep,
	}
	result := s.Synthesize(context.Background(), domain.AnalysisContext{}, nil, 0.8)
	assert.Equal(t, ModelTierFallback, result.ModelTier)
	assert.Equal(t, domain.DecisionApprove, result.Decision)
}

func TestSynthesize_RuleBasedWhenBothFail(t *testing.T) {
	s := &Synthesizer{
		Primary:  &stubClient{errs: []error{errors.New("x"), errors.New("x"), errors.New("x")}},
		Fallback: &stubClient{errs: []error{errors.New("y"), errors.New("y"), errors.New("y")}},
		Sleep:    noSleep,
	}
	result := s.Synthesize(context.Background(), domain.AnalysisContext{}, nil, 0.85)
	assert.Equal(t, ModelTierRuleBased, result.ModelTier)
	assert.Equal(t, domain.DecisionApprove, result.Decision)
	assert.Equal(t, 0.5, result.ConfidenceScore)
}

func TestSynthesize_RetriesAfterInvalidJSON(t *testing.T) {
	s := &Synthesizer{
		Primary:  &stubClient{responses: []string{"not json at all, but long enough to pass the length check easily.", validJSON}},
		Fallback: &stubClient{responses: []string{validJSON}},
		Sleep:    noSleep,
	}
	result := s.Synthesize(context.Background(), domain.AnalysisContext{}, nil, 0.8)
	assert.Equal(t, ModelTierPrimary, result.ModelTier)
}

func TestIsIncomplete_DetectsTruncationMarkers(t *testing.T) {
	assert.True(t, isIncomplete("this response trails off..."))
	assert.True(t, isIncomplete("short"))
	assert.True(t, isIncomplete("```json\n{\"a\":1}"))
	assert.False(t, isIncomplete(validJSON))
}

func TestValidateDecision_RejectsOutOfRangeLikelihood(t *testing.T) {
	_, err := validateDecision(`{"approval_likelihood_percent": 150, "decision_prediction": "Approve", "confidence_score": 0.5, "clinical_rationale": "x"}`)
	require.Error(t, err)
}

func TestValidateDecision_RejectsEmptyRationale(t *testing.T) {
	_, err := validateDecision(`{"approval_likelihood_percent": 50, "decision_prediction": "Deny", "confidence_score": 0.5, "clinical_rationale": ""}`)
	require.Error(t, err)
}

func TestValidateDecision_ParsesPendForMoreInfoCaseInsensitive(t *testing.T) {
	result, err := validateDecision(`{"approval_likelihood_percent": 50, "decision_prediction": "pend FOR more info", "confidence_score": 0.5, "clinical_rationale": "needs more documentation"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPend, result.Decision)
}

func TestRuleBasedDecision_ThresholdsMatchSpec(t *testing.T) {
	assert.Equal(t, domain.DecisionApprove, ruleBasedDecision(0.8, nil).Decision)
	assert.Equal(t, domain.DecisionDeny, ruleBasedDecision(0.1, nil).Decision)
	assert.Equal(t, domain.DecisionPend, ruleBasedDecision(0.5, nil).Decision)
}

func TestEstimateTokens_WordCountTimes1Point3(t *testing.T) {
	assert.Equal(t, 13, estimateTokens("one two three four five six seven eight nine ten"))
}
