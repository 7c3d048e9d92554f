// Package fingerprint builds a lightweight per-creator behavioral signature
// used as an optional clustering prefilter dimension (SPEC_FULL.md §10,
// supplemented from the original's creator_fingerprint service). It is a
// cheap candidate-narrowing bucket, never a scored similarity dimension —
// the weighted breakdown in internal/cluster still sums to 1.0 unmodified.
package fingerprint

import "math"

// Signature summarizes a creator's recent posting behavior from their
// OutlierItem history.
type Signature struct {
	CreatorKey      string
	AvgGrowthRate   float64
	AvgEngagement   float64
	PostingCadence  float64 // items per day, over the observed window
	DominantTier    string
	SampleSize      int
}

// Sample is the minimal per-item shape the builder needs; callers project
// their OutlierItem rows into this to avoid a direct domain dependency.
type Sample struct {
	GrowthRate     float64
	EngagementRate float64
	OutlierTier    string
	DaysOld        float64
}

// Build aggregates a creator's samples into a Signature. An empty sample set
// returns the zero Signature rather than an error: "no fingerprint yet" is a
// valid state for a creator with no observed history.
func Build(creatorKey string, samples []Sample) Signature {
	if len(samples) == 0 {
		return Signature{CreatorKey: creatorKey}
	}

	var growthSum, engagementSum, spanDays float64
	tierCounts := map[string]int{}
	for _, s := range samples {
		growthSum += s.GrowthRate
		engagementSum += s.EngagementRate
		if s.DaysOld > spanDays {
			spanDays = s.DaysOld
		}
		if s.OutlierTier != "" {
			tierCounts[s.OutlierTier]++
		}
	}

	n := float64(len(samples))
	cadence := 0.0
	if spanDays > 0 {
		cadence = n / spanDays
	}

	dominant := ""
	best := -1
	for tier, count := range tierCounts {
		if count > best {
			best = count
			dominant = tier
		}
	}

	return Signature{
		CreatorKey:     creatorKey,
		AvgGrowthRate:  growthSum / n,
		AvgEngagement:  engagementSum / n,
		PostingCadence: cadence,
		DominantTier:   dominant,
		SampleSize:     len(samples),
	}
}

// SameBucket is the prefilter test: two creators land in the same candidate
// bucket when their cadence and engagement are within a coarse tolerance of
// each other. It is deliberately loose — a cheap narrowing step, not a
// similarity score.
func SameBucket(a, b Signature) bool {
	if a.SampleSize == 0 || b.SampleSize == 0 {
		return false
	}
	return closeEnough(a.PostingCadence, b.PostingCadence, 0.5) &&
		closeEnough(a.AvgEngagement, b.AvgEngagement, 0.05)
}

func closeEnough(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
