// Package bayes implements the pattern-prior Bayesian updater and the
// Free-Energy calibration checker (spec.md §4.6). The updater is a pure
// function over (prior, evidence); internal/data/aggregates wires it to the
// durable internal/domain/evidence.PatternPrior row.
package bayes

import (
	"math"

	domainbayes "github.com/ds4psb/komission-core/internal/domain/bayes"
)

const epsilon = 1e-9

// Likelihood computes P(E|S) for a single Evidence observation per spec.md
// §4.6's base-plus-adjustments table, clamped to [0.1, 0.95], then flips or
// recenters it per the outcome.
func Likelihood(ev domainbayes.Evidence) float64 {
	if ev.Outcome == domainbayes.OutcomeUnknown {
		l := 0.5 + (ev.ProofStrength-5)*0.02
		return clamp(l, 0.1, 0.9)
	}

	l := 0.7
	switch {
	case ev.ProofStrength > 7:
		l += 0.2
	case ev.ProofStrength > 5:
		l += 0.1
	case ev.ProofStrength < 3:
		l -= 0.4
	case ev.ProofStrength < 4:
		l -= 0.3
	}
	l += math.Min(0.15, ev.CostPaid/100)
	if ev.EngagementRate > 0.1 {
		l += 0.1
	}
	l = clamp(l, 0.1, 0.95)

	if ev.Outcome == domainbayes.OutcomeFailure {
		l = 1 - l
	}
	return l
}

// Update applies one Evidence observation to (p, n) via an odds-based
// posterior update, returning the new Posterior including a Wilson 95% CI
// computed at n=sample_count+1 (spec.md §4.6).
func Update(p float64, sampleCount int, ev domainbayes.Evidence) domainbayes.Posterior {
	likelihood := Likelihood(ev)

	oddsPrior := p / (1 - p + epsilon)
	oddsPost := oddsPrior * likelihood / (1 - likelihood + epsilon)
	pPost := oddsPost / (1 + oddsPost)
	pPost = clamp(pPost, 0.01, 0.99)

	newN := sampleCount + 1
	low, high := wilsonCI(pPost, newN+1)
	width := high - low

	var label domainbayes.ConfidenceLabel
	switch {
	case width < 0.1:
		label = domainbayes.ConfidenceHigh
	case width < 0.3:
		label = domainbayes.ConfidenceMedium
	default:
		label = domainbayes.ConfidenceLow
	}

	return domainbayes.Posterior{
		PSuccess:    pPost,
		SampleCount: newN,
		CILow:       low,
		CIHigh:      high,
		Confidence:  label,
		Likelihood:  likelihood,
	}
}

// wilsonCI computes the Wilson score interval for a success proportion p̂
// observed over n trials, at the 95% confidence level (z ≈ 1.96).
func wilsonCI(phat float64, n int) (float64, float64) {
	if n <= 0 {
		return 0, 1
	}
	const z = 1.96
	nf := float64(n)
	denom := 1 + z*z/nf
	center := phat + z*z/(2*nf)
	margin := z * math.Sqrt(phat*(1-phat)/nf+z*z/(4*nf*nf))
	low := (center - margin) / denom
	high := (center + margin) / denom
	return clamp(low, 0, 1), clamp(high, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
