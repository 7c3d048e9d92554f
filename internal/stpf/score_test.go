package stpf

import (
	"reflect"
	"testing"

	domainstpf "github.com/ds4psb/komission-core/internal/domain/stpf"
)

func baseInputs() domainstpf.Inputs {
	return domainstpf.Inputs{
		Trust: 8, Legality: 9, Hygiene: 8,
		Essence: 7, Capability: 6, Novelty: 6, Connection: 5, Proof: 7,
		Cost: 3, Risk: 3, Threat: 2, Pressure: 2, TimeLag: 3, Uncertainty: 3,
		Scarcity: 1.1, Network: 7, Leverage: 1.2,
		ProofHasEvidence: true,
	}
}

func TestScoreKillSwitch(t *testing.T) {
	in := baseInputs()
	in.Trust = 3
	got := Score(in)
	if got.Score1000 != 0 || got.Decision != domainstpf.DecisionNoGo || got.GatePassed {
		t.Fatalf("expected kill switch: got %+v", got)
	}
}

func TestScoreProofCeiling(t *testing.T) {
	withEvidence := baseInputs()
	withEvidence.Proof = 9
	withEvidence.ProofHasEvidence = true

	withoutEvidence := baseInputs()
	withoutEvidence.Proof = 9
	withoutEvidence.ProofHasEvidence = false

	scoreWith := Score(withEvidence)
	scoreWithout := Score(withoutEvidence)
	if scoreWithout.Score1000 >= scoreWith.Score1000 {
		t.Fatalf("expected capped proof to score lower: with=%d without=%d", scoreWith.Score1000, scoreWithout.Score1000)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	in := baseInputs()
	first := Score(in)
	second := Score(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical inputs to produce a byte-for-byte identical score: %+v vs %+v", first, second)
	}
}

func TestScoreTrustCollapsePatch(t *testing.T) {
	in := baseInputs()
	in.Trust = 5 // still clears the kill switch (>=4) but below the collapse threshold (<6)
	in.Legality = 8
	in.Hygiene = 8
	got := Score(in)
	found := false
	for _, p := range got.Patches {
		if p == "trust collapse: trust below 6 caps upside" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected trust collapse patch to fire, got patches=%v", got.Patches)
	}
}

func TestScoreDecisionThresholds(t *testing.T) {
	in := baseInputs()
	in.Essence = 10
	in.Capability = 10
	in.Novelty = 10
	in.Connection = 10
	in.Proof = 10
	in.Cost, in.Risk, in.Threat, in.Pressure, in.TimeLag, in.Uncertainty = 1, 1, 1, 1, 1, 1
	in.Scarcity, in.Network, in.Leverage = 1.5, 9, 1.5
	got := Score(in)
	if got.Decision != domainstpf.DecisionGo {
		t.Fatalf("expected a strong profile to reach GO, got %+v", got)
	}
}
