// Package stpf implements the gate/value/friction/multiplier scoring core
// (spec.md §4.5). It is a pure function package — no I/O, no persistence —
// so Score is trivially unit-testable byte-for-byte per spec.md §8's
// idempotence property. Callers persist the returned domainstpf.Score as an
// Artifact via the run engine.
package stpf

import (
	"math"

	domainstpf "github.com/ds4psb/komission-core/internal/domain/stpf"
)

const (
	omega           = 0.8  // friction exponent
	networkBeta     = 0.5  // network exponential boost coefficient
	entropyGamma    = 0.6  // gap entropy bonus coefficient
	rescaleConstant = 500.0
)

var frictionWeights = struct {
	cost, risk, threat, pressure, timeLag, uncertainty float64
}{1, 1, 1, 1, 1, 1}

// Score applies spec.md §4.5's full gate/value/friction/multiplier formula,
// the rescale to 0-1000, the reality-distortion patches, and the decision
// thresholds, in that order. Given identical Inputs it always returns an
// identical Score (no wall-clock, no randomness).
func Score(in domainstpf.Inputs) domainstpf.Score {
	gates := []float64{in.Trust, in.Legality, in.Hygiene}
	minGate := gates[0]
	for _, g := range gates[1:] {
		if g < minGate {
			minGate = g
		}
	}

	// Rule 1: kill switch.
	if minGate < 4 {
		return domainstpf.Score{
			Score1000:  0,
			GatePassed: false,
			Decision:   domainstpf.DecisionNoGo,
			Why:        "a gate variable fell below 4; the kill switch bypasses all further math",
			How:        []string{"raise every gate variable (trust, legality, hygiene) to at least 4 before re-scoring"},
		}
	}

	// Rule 2: proof ceiling.
	proof := in.Proof
	if !in.ProofHasEvidence && proof > 3 {
		proof = 3
	}

	gGates := (in.Trust / 10) * (in.Legality / 10) * (in.Hygiene / 10)

	// Rule 3: essence exponential; value formula.
	value := math.Pow(in.Essence, 2) *
		math.Pow(in.Capability, 1.2) *
		math.Pow(in.Novelty, 1.1) *
		math.Pow(in.Connection, 1.0) *
		math.Pow(proof, 1.3)

	// Rule 4: friction safe form.
	friction := frictionTerm(in.Cost, frictionWeights.cost) *
		frictionTerm(in.Risk, frictionWeights.risk) *
		frictionTerm(in.Threat, frictionWeights.threat) *
		frictionTerm(in.Pressure, frictionWeights.pressure) *
		frictionTerm(in.TimeLag, frictionWeights.timeLag) *
		frictionTerm(in.Uncertainty, frictionWeights.uncertainty)

	// Rule 5: network exponential boost, folded into the multiplier.
	networkBoost := 1 + (math.Pow(2, (in.Network-1)/9) - 1) * networkBeta
	multiplier := in.Scarcity * networkBoost * in.Leverage
	if in.Timing > 0 {
		multiplier *= in.Timing
	}
	if in.PlatformFit > 0 {
		multiplier *= in.PlatformFit
	}
	if in.CreatorAuthority > 0 {
		multiplier *= in.CreatorAuthority
	}

	// Rule 6: gap entropy bonus.
	entropyBonus := 1.0
	if in.ExpectedScore > 0 && in.ActualScore > 0 {
		gap := in.ActualScore - in.ExpectedScore
		if gap < 0 {
			gap = 0
		}
		entropyBonus = 1 + entropyGamma*math.Log(1+gap)
	}

	raw := gGates * (value / math.Pow(friction, omega)) * multiplier * entropyBonus

	score1000 := int(math.Round(1000 * raw / (raw + rescaleConstant)))
	score1000, patches := applyPatches(in, score1000)

	decision := decide(score1000)

	return domainstpf.Score{
		Score1000:  score1000,
		GatePassed: true,
		Raw:        raw,
		Value:      value,
		Friction:   friction,
		Multiplier: multiplier,
		Entropy:    entropyBonus,
		Decision:   decision,
		Confidence: gGates,
		Why:        why(decision, score1000),
		How:        how(in, decision),
		Patches:    patches,
	}
}

// frictionTerm implements "1 + ((x-1)/9) * weight_i" — friction is always
// >= 1 so division by it can never blow up or divide by zero.
func frictionTerm(x, weight float64) float64 {
	return 1 + ((x-1)/9)*weight
}

func decide(score1000 int) domainstpf.Decision {
	switch {
	case score1000 >= 700:
		return domainstpf.DecisionGo
	case score1000 >= 400:
		return domainstpf.DecisionConsider
	default:
		return domainstpf.DecisionNoGo
	}
}

// applyPatches applies the reality-distortion patches in spec.md §4.5's
// fixed order, each on the rescaled 0-1000 score, each emitting a reason.
func applyPatches(in domainstpf.Inputs, score1000 int) (int, []string) {
	var patches []string
	s := float64(score1000)

	if in.Essence <= 3 && in.InvestedCapital > 1_000_000 {
		boost := 1 + 0.1*math.Log10(1+in.InvestedCapital)
		s *= boost
		patches = append(patches, "capital override: low essence offset by invested capital")
	}
	if in.Proof < 5 && in.ConfidenceLevel > 7 {
		s *= 1 - 0.03*in.ConfidenceLevel
		patches = append(patches, "overconfidence penalty: high confidence with weak proof")
	}
	if in.Trust < 6 {
		s *= 0.2
		patches = append(patches, "trust collapse: trust below 6 caps upside")
	}
	if in.Network > 8 && in.Retention > 0.7 {
		s *= 1.3
		patches = append(patches, "winner-takes-all: strong network and retention compound")
	}

	clamped := int(math.Round(s))
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1000 {
		clamped = 1000
	}
	return clamped, patches
}

func why(decision domainstpf.Decision, score1000 int) string {
	switch decision {
	case domainstpf.DecisionGo:
		return "value comfortably clears friction and the gates all hold, so this is a GO"
	case domainstpf.DecisionConsider:
		return "the score lands in the middle band: promising but not yet a clear GO"
	default:
		return "friction or weak value keeps this below the promotion bar"
	}
}

func how(in domainstpf.Inputs, decision domainstpf.Decision) []string {
	if decision == domainstpf.DecisionGo {
		return nil
	}
	var suggestions []string
	if in.Proof < 7 {
		suggestions = append(suggestions, "gather stronger proof before the next cycle")
	}
	if in.Risk > 5 || in.Threat > 5 {
		suggestions = append(suggestions, "reduce risk/threat exposure to lower friction")
	}
	if in.Network < 6 {
		suggestions = append(suggestions, "grow network reach to unlock the exponential boost")
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}
