package query

import (
	"context"

	evidencerepos "github.com/ds4psb/komission-core/internal/data/repos/evidence"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// ConfidenceLabel interprets a PatternPrior the way the original's
// patterns/{pattern_id} STPF resource does: too few samples is low
// confidence regardless of p_success, enough samples lets p_success itself
// speak.
type ConfidenceLabel string

const (
	ConfidenceInsufficientSamples ConfidenceLabel = "insufficient_samples"
	ConfidenceEarlyData           ConfidenceLabel = "early_data"
	ConfidenceStrongPattern       ConfidenceLabel = "strong_pattern"
	ConfidencePositivePattern     ConfidenceLabel = "positive_pattern"
	ConfidenceWeakPattern         ConfidenceLabel = "weak_pattern"
	ConfidenceIneffectivePattern  ConfidenceLabel = "ineffective_pattern"
)

// PatternConfidence is the read-model behind the original's
// stpf://patterns/{pattern_id} resource.
type PatternConfidence struct {
	PatternID   string
	PSuccess    float64
	SampleCount int
	Label       ConfidenceLabel
}

// BuildPatternConfidence loads or initializes patternID's prior and
// interprets it.
func BuildPatternConfidence(ctx context.Context, priors evidencerepos.PriorRepo, patternID string) (PatternConfidence, error) {
	prior, err := priors.GetOrInit(dbctx.Context{Ctx: ctx}, patternID)
	if err != nil {
		return PatternConfidence{}, err
	}
	return PatternConfidence{
		PatternID:   prior.PatternID,
		PSuccess:    prior.PSuccess,
		SampleCount: prior.SampleCount,
		Label:       interpretConfidence(prior.PSuccess, prior.SampleCount),
	}, nil
}

func interpretConfidence(pSuccess float64, sampleCount int) ConfidenceLabel {
	switch {
	case sampleCount < 5:
		return ConfidenceInsufficientSamples
	case sampleCount < 20:
		return ConfidenceEarlyData
	case pSuccess >= 0.7:
		return ConfidenceStrongPattern
	case pSuccess >= 0.5:
		return ConfidencePositivePattern
	case pSuccess >= 0.3:
		return ConfidenceWeakPattern
	default:
		return ConfidenceIneffectivePattern
	}
}
