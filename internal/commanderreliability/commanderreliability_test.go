package commanderreliability

import (
	"testing"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/checkpoint"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/stresstransform"
)

func readyBaseline() checkpoint.Payload {
	return checkpoint.Payload{
		Base: model.Base{Version: checkpoint.Version, Status: model.StatusOK, Codes: []string{}},
		Buckets: []checkpoint.BucketCheckpoints{
			{BucketID: RampBucketID, PGe1: map[int]float64{7: 0.5, 9: 0.8, 10: 0.85, 12: 0.9}},
		},
	}
}

func readyStress(rampPGe1 map[int]float64) stresstransform.Payload {
	return stresstransform.Payload{
		Base: model.Base{Version: stresstransform.Version, Status: model.StatusOK, Codes: []string{}},
		Buckets: []stresstransform.BucketState{
			{BucketID: RampBucketID, PGe1: rampPGe1},
		},
	}
}

func TestRunSkipsWhenBaselineUnavailable(t *testing.T) {
	unready := checkpoint.Payload{Base: model.Base{Status: model.StatusSkip}}
	got := Run(nil, unready, stresstransform.Payload{}, model.CommanderDependentLow, true)
	if got.Status != model.StatusSkip {
		t.Fatalf("expected SKIP, got %s", got.Status)
	}
}

func TestRunSourcesCastReliabilityFromRampBucket(t *testing.T) {
	got := Run(nil, readyBaseline(), stresstransform.Payload{}, model.CommanderDependentUnknown, false)
	if got.CastReliabilityT3 == nil || *got.CastReliabilityT3 != 0.8 {
		t.Fatalf("cast_reliability_t3 = %v, want 0.8", got.CastReliabilityT3)
	}
	if got.CastReliabilityT4 == nil || *got.CastReliabilityT4 != 0.85 {
		t.Fatalf("cast_reliability_t4 = %v, want 0.85", got.CastReliabilityT4)
	}
	if got.CastReliabilityT6 == nil || *got.CastReliabilityT6 != 0.9 {
		t.Fatalf("cast_reliability_t6 = %v, want 0.9", got.CastReliabilityT6)
	}
}

func TestRunFragilityZeroWhenCommanderDependentLow(t *testing.T) {
	got := Run(nil, readyBaseline(), readyStress(map[int]float64{9: 0.1, 10: 0.1, 12: 0.1}), model.CommanderDependentLow, true)
	if got.CommanderFragilityDelta == nil || *got.CommanderFragilityDelta != 0.0 {
		t.Fatalf("expected fragility 0.0 for LOW, got %v", got.CommanderFragilityDelta)
	}
}

func TestRunFragilityComputedFromBaselineStressDelta(t *testing.T) {
	stress := readyStress(map[int]float64{9: 0.4, 10: 0.45, 12: 0.5})
	got := Run(nil, readyBaseline(), stress, model.CommanderDependentMedium, true)
	if got.CommanderFragilityDelta == nil {
		t.Fatal("expected a non-nil fragility delta")
	}
	baselineMean := (0.8 + 0.85 + 0.9) / 3.0
	stressMean := (0.4 + 0.45 + 0.5) / 3.0
	want := baselineMean - stressMean
	if diff := *got.CommanderFragilityDelta - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("fragility = %v, want ~%v", *got.CommanderFragilityDelta, want)
	}
}

func TestRunFragilityClampedToZeroWhenStressHigherThanBaseline(t *testing.T) {
	stress := readyStress(map[int]float64{9: 0.99, 10: 0.99, 12: 0.99})
	got := Run(nil, readyBaseline(), stress, model.CommanderDependentMedium, true)
	if got.CommanderFragilityDelta == nil || *got.CommanderFragilityDelta != 0.0 {
		t.Fatalf("expected fragility floored at 0.0, got %v", got.CommanderFragilityDelta)
	}
}

func TestProtectionCoverageExcludesCommanderSlot(t *testing.T) {
	idx := &model.PrimitiveIndex{
		PrimitivesBySlot: map[string][]string{
			"commander": {HexproofProtectionPrimitive},
			"s1":         {HexproofProtectionPrimitive},
			"s2":         {},
		},
		PlayableSlotIDs: []string{"commander", "s1", "s2"},
		CommanderSlotID: "commander",
	}
	got := Run(idx, readyBaseline(), stresstransform.Payload{}, model.CommanderDependentUnknown, false)
	if got.ProtectionCoverageProxy == nil {
		t.Fatal("expected a non-nil protection_coverage_proxy")
	}
	if *got.ProtectionCoverageProxy != 0.5 {
		t.Fatalf("protection_coverage_proxy = %v, want 1/2 = 0.5 (commander slot excluded)", *got.ProtectionCoverageProxy)
	}
}
