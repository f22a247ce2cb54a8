package resilience

import (
	"testing"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/checkpoint"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/stresstransform"
)

func readyBaseline(bucketID string, effectiveK float64) checkpoint.Payload {
	return checkpoint.Payload{
		Base: model.Base{Version: checkpoint.Version, Status: model.StatusOK, Codes: []string{}},
		Buckets: []checkpoint.BucketCheckpoints{
			{BucketID: bucketID, EffectiveK: effectiveK, KInt: int(effectiveK), PGe1: map[int]float64{7: 0.9, 9: 0.93, 10: 0.94, 12: 0.96}},
		},
	}
}

func readyStress(bucketID string, effectiveK float64, impacts []stresstransform.OperatorImpact) stresstransform.Payload {
	return stresstransform.Payload{
		Base: model.Base{Version: stresstransform.Version, Status: model.StatusOK, Codes: []string{}},
		Buckets: []stresstransform.BucketState{
			{BucketID: bucketID, EffectiveK: effectiveK, KInt: int(effectiveK), PGe1: map[int]float64{7: 0.7, 9: 0.75, 10: 0.78, 12: 0.82}},
		},
		OperatorImpacts: impacts,
	}
}

func TestRunSkipsWhenBaselineUnavailable(t *testing.T) {
	unreadyBaseline := checkpoint.Payload{Base: model.Base{Version: checkpoint.Version, Status: model.StatusSkip, Codes: []string{}}}
	stress := readyStress("removal", 7, nil)

	got, err := Run(unreadyBaseline, stress, model.CommanderDependentLow, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Status != model.StatusSkip {
		t.Fatalf("expected SKIP, got %s", got.Status)
	}
}

func TestRunReturnsAlignmentErrorOnBucketMismatch(t *testing.T) {
	baseline := readyBaseline("removal", 10)
	stress := readyStress("different_bucket", 7, nil)

	_, err := Run(baseline, stress, model.CommanderDependentLow, true)
	if err == nil {
		t.Fatal("expected an alignment error")
	}
	if !IsAlignmentError(err) {
		t.Fatalf("expected IsAlignmentError, got %v", err)
	}
}

func TestRunCommanderFragilityZeroWhenLow(t *testing.T) {
	baseline := readyBaseline("removal", 10)
	stress := readyStress("removal", 7, nil)

	got, err := Run(baseline, stress, model.CommanderDependentLow, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.CommanderFragilityDelta == nil || *got.CommanderFragilityDelta != 0.0 {
		t.Fatalf("expected commander_fragility_delta 0.0 for LOW, got %v", got.CommanderFragilityDelta)
	}
}

func TestRunCommanderFragilityUnavailableWhenNotReady(t *testing.T) {
	baseline := readyBaseline("removal", 10)
	stress := readyStress("removal", 7, nil)

	got, err := Run(baseline, stress, model.CommanderDependentUnknown, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.CommanderFragilityDelta != nil {
		t.Fatalf("expected nil commander_fragility_delta, got %v", *got.CommanderFragilityDelta)
	}
	if got.Status != model.StatusWarn {
		t.Fatalf("expected WARN status, got %s", got.Status)
	}
	found := false
	for _, c := range got.Codes {
		if c == "RESILIENCE_COMMANDER_FRAGILITY_UNAVAILABLE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected RESILIENCE_COMMANDER_FRAGILITY_UNAVAILABLE code, got %v", got.Codes)
	}
}

func TestRunRemovalContinuityUsesTargetedRemovalImpacts(t *testing.T) {
	baseline := readyBaseline("removal", 10)
	impacts := []stresstransform.OperatorImpact{
		{Op: "TARGETED_REMOVAL", BucketID: "removal", EffectiveKBefore: 10, EffectiveKAfter: 8},
		{Op: "TARGETED_REMOVAL", BucketID: "removal", EffectiveKBefore: 8, EffectiveKAfter: 5},
	}
	stress := readyStress("removal", 5, impacts)

	got, err := Run(baseline, stress, model.CommanderDependentLow, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got.EngineContinuityByBucket) != 1 {
		t.Fatalf("expected 1 bucket row, got %d", len(got.EngineContinuityByBucket))
	}
	want := 5.0 / 10.0
	if got.EngineContinuityByBucket[0].Value != want {
		t.Fatalf("expected %v, got %v", want, got.EngineContinuityByBucket[0].Value)
	}
}

func TestRunGraveyardFragilityZeroWithoutImpacts(t *testing.T) {
	baseline := readyBaseline("removal", 10)
	stress := readyStress("removal", 10, nil)

	got, err := Run(baseline, stress, model.CommanderDependentLow, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.GraveyardFragilityDelta != 0.0 {
		t.Fatalf("expected 0.0 fallback, got %v", got.GraveyardFragilityDelta)
	}
}
