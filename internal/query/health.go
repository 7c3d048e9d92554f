package query

import (
	"github.com/ds4psb/komission-core/internal/bayes"
	domainbayes "github.com/ds4psb/komission-core/internal/domain/bayes"
)

// SystemHealth is the read-model behind the original's stpf://health
// resource: the calibration checker's snapshot plus the plain-English
// recommendations an operator acts on.
type SystemHealth struct {
	domainbayes.Calibration
	Recommendations []string
}

// BuildSystemHealth reads the current calibration snapshot and derives
// recommendations from it. checker is shared process-wide — see
// bayes.FreeEnergyChecker's own doc comment on why it is a ring buffer
// rather than a durable table.
func BuildSystemHealth(checker *bayes.FreeEnergyChecker) SystemHealth {
	cal := checker.Calibration()
	return SystemHealth{
		Calibration:     cal,
		Recommendations: recommend(cal),
	}
}

func recommend(cal domainbayes.Calibration) []string {
	if cal.Health == domainbayes.HealthUnknown {
		return []string{"fewer than 5 completed predictions; keep recording outcomes before trusting this snapshot"}
	}
	var out []string
	if cal.CalibrationError > 0.1 {
		out = append(out, "predicted and actual success rates have drifted apart; consider re-tuning STPF weights")
	}
	if cal.Surprise > 0.3 {
		out = append(out, "a high share of predictions are landing on the wrong side of the decision threshold")
	}
	if cal.Health == domainbayes.HealthCritical {
		out = append(out, "free energy is critical; pause automated promotion until calibration recovers")
	}
	if len(out) == 0 {
		out = append(out, "calibration is healthy; no action needed")
	}
	return out
}
