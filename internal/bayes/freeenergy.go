package bayes

import (
	"math"
	"sync"

	domainbayes "github.com/ds4psb/komission-core/internal/domain/bayes"
)

const ringCapacity = 1000

// FreeEnergyChecker maintains an in-process ring buffer of up to 1000
// {predicted_score, actual_outcome} records and derives the calibration
// snapshot described in spec.md §4.6. Init/Snapshot/Load give it the same
// shape as the pattern-prior component per §9's design note, so a process
// restart can reload a persisted snapshot's raw records rather than losing
// calibration history.
type FreeEnergyChecker struct {
	mu      sync.Mutex
	records []domainbayes.Prediction
	next    int
	full    bool
}

// Init returns a fresh, empty checker.
func Init() *FreeEnergyChecker {
	return &FreeEnergyChecker{records: make([]domainbayes.Prediction, 0, ringCapacity)}
}

// Load rebuilds a checker from a previously persisted record set (most
// recent last), truncating to the ring capacity if necessary.
func Load(records []domainbayes.Prediction) *FreeEnergyChecker {
	c := Init()
	start := 0
	if len(records) > ringCapacity {
		start = len(records) - ringCapacity
	}
	for _, r := range records[start:] {
		c.Record(r)
	}
	return c
}

// Record appends a new prediction/outcome pair, evicting the oldest once the
// ring is full.
func (c *FreeEnergyChecker) Record(p domainbayes.Prediction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) < ringCapacity {
		c.records = append(c.records, p)
		return
	}
	c.full = true
	c.records[c.next] = p
	c.next = (c.next + 1) % ringCapacity
}

// Snapshot returns the raw records currently held, oldest first, so a caller
// can persist them for a future Load.
func (c *FreeEnergyChecker) Snapshot() []domainbayes.Prediction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.full {
		out := make([]domainbayes.Prediction, len(c.records))
		copy(out, c.records)
		return out
	}
	out := make([]domainbayes.Prediction, 0, ringCapacity)
	out = append(out, c.records[c.next:]...)
	out = append(out, c.records[:c.next]...)
	return out
}

// Calibration computes the full snapshot from spec.md §4.6: entropy,
// surprise, free_energy, Brier score, log-loss, mean absolute error,
// calibration_error, and an overall health label. With fewer than 5
// completed predictions, health is reported "unknown".
func (c *FreeEnergyChecker) Calibration() domainbayes.Calibration {
	records := c.Snapshot()
	n := len(records)
	if n < 5 {
		return domainbayes.Calibration{SampleCount: n, Health: domainbayes.HealthUnknown}
	}

	mean := 0.0
	for _, r := range records {
		mean += r.PredictedScore
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range records {
		d := r.PredictedScore - mean
		variance += d * d
	}
	variance /= float64(n)

	entropy := math.Min(1.0, variance/(500*500))

	var surpriseSum, brierSum, logLossSum, absErrSum float64
	var predictedSuccessCount, actualSuccessCount int
	const eps = 1e-9

	for _, r := range records {
		phat := r.PredictedScore / 1000
		phat = clamp(phat, eps, 1-eps)

		actual := 0.0
		if r.ActualSuccess {
			actual = 1.0
			actualSuccessCount++
		}

		predictedPositive := r.PredictedScore >= 500
		if predictedPositive {
			predictedSuccessCount++
		}
		if predictedPositive != r.ActualSuccess {
			surpriseSum += 1
		}

		diff := phat - actual
		brierSum += diff * diff
		logLossSum -= actual*math.Log(phat) + (1-actual)*math.Log(1-phat)
		absErrSum += math.Abs(diff)
	}

	surprise := surpriseSum / float64(n)
	freeEnergy := entropy + surprise
	predictedRate := float64(predictedSuccessCount) / float64(n)
	actualRate := float64(actualSuccessCount) / float64(n)

	var health domainbayes.HealthStatus
	switch {
	case freeEnergy < 0.35:
		health = domainbayes.HealthHealthy
	case freeEnergy < 0.7:
		health = domainbayes.HealthDegraded
	default:
		health = domainbayes.HealthCritical
	}

	return domainbayes.Calibration{
		Entropy:          entropy,
		Surprise:         surprise,
		FreeEnergy:       freeEnergy,
		Brier:            brierSum / float64(n),
		LogLoss:          logLossSum / float64(n),
		MeanAbsError:     absErrSum / float64(n),
		CalibrationError: math.Abs(predictedRate - actualRate),
		Health:           health,
		SampleCount:      n,
	}
}
