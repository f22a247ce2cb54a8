// Package commanderreliability implements layer 11, CommanderReliability:
// cast-reliability proxies sourced from the RAMP bucket only (no
// mana-curve inference, no text parsing), plus a protection-coverage proxy
// over the HEXPROOF_PROTECTION/INDESTRUCTIBLE_PROTECTION primitives.
package commanderreliability

import (
	"github.com/jordenrsantos-sys/MTG-Deck/internal/checkpoint"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/stresstransform"
)

// Version is the compiled version pin for this layer.
const Version = "commander_reliability_v1"

// RampBucketID is the fixed bucket this layer sources cast-reliability
// proxies from.
const RampBucketID = "RAMP"

// HexproofProtectionPrimitive and IndestructibleProtectionPrimitive are the
// two primitive ids that make up protection_coverage_proxy's numerator.
const (
	HexproofProtectionPrimitive     = "HEXPROOF_PROTECTION"
	IndestructibleProtectionPrimitive = "INDESTRUCTIBLE_PROTECTION"
)

// Checkpoint mapping fixed by spec: t3->9, t4->10, t6->12.
const (
	checkpointT3 = 9
	checkpointT4 = 10
	checkpointT6 = 12
)

// Payload is the layer-11 output.
type Payload struct {
	model.Base
	CastReliabilityT3        *float64 `json:"cast_reliability_t3"`
	CastReliabilityT4        *float64 `json:"cast_reliability_t4"`
	CastReliabilityT6        *float64 `json:"cast_reliability_t6"`
	ProtectionCoverageProxy  *float64 `json:"protection_coverage_proxy"`
	CommanderFragilityDelta  *float64 `json:"commander_fragility_delta"`
}

// Run derives the commander-reliability proxies. index is the normalized
// primitive index (nil when upstream is unavailable); baseline/stress are
// layers 7/9; commanderDependent is the layer-1 class.
func Run(index *model.PrimitiveIndex, baseline checkpoint.Payload, stress stresstransform.Payload, commanderDependent model.CommanderDependent, commanderDependentReady bool) Payload {
	if !baseline.Base.Ready() {
		reason := "UPSTREAM_PROBABILITY_CHECKPOINT_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}
	}

	var codes []string

	rampBase, rampOK := checkpoint.BucketByID(baseline, RampBucketID)
	var t3, t4, t6 *float64
	if rampOK {
		t3 = floatPtr(rampBase.PGe1[checkpointT3])
		t4 = floatPtr(rampBase.PGe1[checkpointT4])
		t6 = floatPtr(rampBase.PGe1[checkpointT6])
	} else {
		codes = append(codes, "COMMANDER_RELIABILITY_RAMP_BUCKET_UNAVAILABLE")
	}

	var protection *float64
	if index != nil {
		proxy, ok := protectionCoverage(*index)
		if ok {
			protection = floatPtr(proxy)
		} else {
			codes = append(codes, "COMMANDER_RELIABILITY_PROTECTION_COVERAGE_UNAVAILABLE")
		}
	} else {
		codes = append(codes, "COMMANDER_RELIABILITY_PROTECTION_COVERAGE_UNAVAILABLE")
	}

	var fragility *float64
	if commanderDependentReady && commanderDependent == model.CommanderDependentLow {
		fragility = floatPtr(0.0)
	} else if rampOK && stress.Base.Ready() {
		stressRamp, stressOK := stresstransform.BucketByID(stress, RampBucketID)
		if stressOK {
			baselineMean := meanOf(rampBase.PGe1[checkpointT3], rampBase.PGe1[checkpointT4], rampBase.PGe1[checkpointT6])
			stressMean := meanOf(stressRamp.PGe1[checkpointT3], stressRamp.PGe1[checkpointT4], stressRamp.PGe1[checkpointT6])
			delta := baselineMean - stressMean
			if delta < 0 {
				delta = 0
			}
			fragility = floatPtr(roundutil.Half6(delta))
		} else {
			codes = append(codes, "COMMANDER_RELIABILITY_FRAGILITY_UNAVAILABLE")
		}
	} else {
		codes = append(codes, "COMMANDER_RELIABILITY_FRAGILITY_UNAVAILABLE")
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	return Payload{
		Base:                    model.Base{Version: Version, Status: status, Codes: model.SortedUniqueStrings(codes)},
		CastReliabilityT3:       t3,
		CastReliabilityT4:       t4,
		CastReliabilityT6:       t6,
		ProtectionCoverageProxy: protection,
		CommanderFragilityDelta: fragility,
	}
}

// protectionCoverage returns (# playable non-commander slots containing
// HEXPROOF_PROTECTION or INDESTRUCTIBLE_PROTECTION) / (# playable
// non-commander slots). ok is false when the denominator is zero.
func protectionCoverage(index model.PrimitiveIndex) (float64, bool) {
	norm := index.Normalized()
	denom := 0
	numer := 0
	for _, slot := range norm.PlayableSlotIDs {
		if slot == norm.CommanderSlotID {
			continue
		}
		denom++
		for _, p := range norm.PrimitivesBySlot[slot] {
			if p == HexproofProtectionPrimitive || p == IndestructibleProtectionPrimitive {
				numer++
				break
			}
		}
	}
	if denom == 0 {
		return 0, false
	}
	return roundutil.Half6(float64(numer) / float64(denom)), true
}

func meanOf(values ...float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func floatPtr(v float64) *float64 { return &v }
