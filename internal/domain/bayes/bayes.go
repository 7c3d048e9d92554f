// Package bayes holds the value types for the Bayesian updater and
// Free-Energy calibration checker (spec.md §4.6).
package bayes

// Outcome is the observed result of a PatternEvidence cycle.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

// Evidence is a single observation fed into the updater.
type Evidence struct {
	Outcome        Outcome `json:"outcome"`
	ProofStrength  float64 `json:"proof_strength"`
	CostPaid       float64 `json:"cost_paid"`
	EngagementRate float64 `json:"engagement_rate"`
}

// ConfidenceLabel classifies the Wilson CI width.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "HIGH"
	ConfidenceMedium ConfidenceLabel = "MEDIUM"
	ConfidenceLow    ConfidenceLabel = "LOW"
)

// Posterior is the result of one update cycle.
type Posterior struct {
	PSuccess    float64         `json:"p_success"`
	SampleCount int             `json:"sample_count"`
	CILow       float64         `json:"ci_low"`
	CIHigh      float64         `json:"ci_high"`
	Confidence  ConfidenceLabel `json:"confidence"`
	Likelihood  float64         `json:"likelihood"`
}

// HealthStatus classifies the free-energy ring buffer's calibration health.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

// Calibration is the Free-Energy checker's full snapshot (spec.md §4.6).
type Calibration struct {
	Entropy          float64      `json:"entropy"`
	Surprise         float64      `json:"surprise"`
	FreeEnergy       float64      `json:"free_energy"`
	Brier            float64      `json:"brier"`
	LogLoss          float64      `json:"log_loss"`
	MeanAbsError     float64      `json:"mean_abs_error"`
	CalibrationError float64      `json:"calibration_error"`
	Health           HealthStatus `json:"health"`
	SampleCount      int          `json:"sample_count"`
}

// Prediction is one ring-buffer record: a predicted STPF-style score paired
// with the outcome that was eventually observed.
type Prediction struct {
	PredictedScore float64 `json:"predicted_score"`
	ActualSuccess  bool    `json:"actual_success"`
}
