// Package resilience implements layer 10, ResilienceMath: compares
// baseline (layer 7) and stress-adjusted (layer 9) bucket states to derive
// removal continuity, wipe rebuild, graveyard fragility, and commander
// fragility. Every ratio metric uses the safe zero-denominator policy
// (num<=0 && den<=0 -> 1.0; num>0 && den<=0 -> 0.0) and is clamped to [0,1]
// before rounding.
package resilience

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/checkpoint"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/stresstransform"
)

// Version is the compiled version pin for this layer.
const Version = "resilience_math_v1"

// BucketRatio is one bucket's value for a per-bucket ratio metric.
type BucketRatio struct {
	BucketID string  `json:"bucket_id"`
	Value    float64 `json:"value"`
}

// Payload is the layer-10 output.
type Payload struct {
	model.Base
	EngineContinuityAfterRemoval float64       `json:"engine_continuity_after_removal"`
	EngineContinuityByBucket     []BucketRatio `json:"engine_continuity_by_bucket"`
	RebuildAfterWipe             float64       `json:"rebuild_after_wipe"`
	RebuildByBucket              []BucketRatio `json:"rebuild_by_bucket"`
	GraveyardFragilityDelta      float64       `json:"graveyard_fragility_delta"`
	GraveyardFragilityByBucket   []BucketRatio `json:"graveyard_fragility_by_bucket"`
	CommanderFragilityDelta      *float64      `json:"commander_fragility_delta"`
}

const (
	opTargetedRemoval = "TARGETED_REMOVAL"
	opBoardWipe       = "BOARD_WIPE"
	opGraveyardHate   = "GRAVEYARD_HATE_WINDOW"
)

// Run compares baseline and stress bucket sets (which must align exactly)
// and derives the four resilience metrics. commanderDependent is the
// layer-1 class; LOW forces commander_fragility_delta to 0.0 outright.
func Run(baseline checkpoint.Payload, stress stresstransform.Payload, commanderDependent model.CommanderDependent, commanderDependentReady bool) (Payload, error) {
	if !baseline.Base.Ready() {
		reason := "UPSTREAM_PROBABILITY_CHECKPOINT_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}, nil
	}
	if !stress.Base.Ready() {
		reason := "UPSTREAM_STRESS_TRANSFORM_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}, nil
	}

	baseIDs := bucketIDSet(baseline)
	stressIDs := stressBucketIDSet(stress)
	if !sameSet(baseIDs, stressIDs) {
		return Payload{}, errAlignment()
	}

	bucketIDs := make([]string, 0, len(baseIDs))
	for id := range baseIDs {
		bucketIDs = append(bucketIDs, id)
	}
	sort.Strings(bucketIDs)

	var codes []string

	continuityRows := make([]BucketRatio, 0, len(bucketIDs))
	rebuildRows := make([]BucketRatio, 0, len(bucketIDs))
	fragilityRows := make([]BucketRatio, 0, len(bucketIDs))

	for _, bucketID := range bucketIDs {
		baseBucket, _ := checkpoint.BucketByID(baseline, bucketID)
		stressBucket, _ := stresstransform.BucketByID(stress, bucketID)

		continuityRows = append(continuityRows, BucketRatio{BucketID: bucketID, Value: removalContinuity(stress, bucketID, baseBucket.EffectiveK, stressBucket.EffectiveK)})
		rebuildRows = append(rebuildRows, BucketRatio{BucketID: bucketID, Value: wipeRebuild(stress, bucketID, baseBucket.EffectiveK, stressBucket.EffectiveK)})
		fragilityRows = append(fragilityRows, BucketRatio{BucketID: bucketID, Value: graveyardFragility(stress, bucketID)})
	}

	var commanderFragility *float64
	if commanderDependentReady && commanderDependent == model.CommanderDependentLow {
		zero := 0.0
		commanderFragility = &zero
	} else {
		codes = append(codes, "RESILIENCE_COMMANDER_FRAGILITY_UNAVAILABLE")
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	return Payload{
		Base:                         model.Base{Version: Version, Status: status, Codes: model.SortedUniqueStrings(codes)},
		EngineContinuityAfterRemoval: roundutil.Half6(mean(continuityRows)),
		EngineContinuityByBucket:     continuityRows,
		RebuildAfterWipe:             roundutil.Half6(mean(rebuildRows)),
		RebuildByBucket:              rebuildRows,
		GraveyardFragilityDelta:      roundutil.Half6(mean(fragilityRows)),
		GraveyardFragilityByBucket:   fragilityRows,
		CommanderFragilityDelta:      commanderFragility,
	}, nil
}

// removalContinuity returns K_after_last_targeted / K_before_first_targeted
// for bucketID when at least one TARGETED_REMOVAL impact exists; else the
// fallback stress_K / baseline_K.
func removalContinuity(stress stresstransform.Payload, bucketID string, baselineK, stressK float64) float64 {
	first, last, ok := stresstransform.FirstLastByOp(stress, bucketID, opTargetedRemoval)
	if !ok {
		return safeRatio(stressK, baselineK)
	}
	return safeRatio(last.EffectiveKAfter, first.EffectiveKBefore)
}

// wipeRebuild returns K_after_last_wipe / K_before_first_wipe for bucketID
// when at least one BOARD_WIPE impact exists; else the fallback scalar 1.0.
func wipeRebuild(stress stresstransform.Payload, bucketID string, baselineK, stressK float64) float64 {
	first, last, ok := stresstransform.FirstLastByOp(stress, bucketID, opBoardWipe)
	if !ok {
		return 1.0
	}
	return safeRatio(last.EffectiveKAfter, first.EffectiveKBefore)
}

// graveyardFragility returns max(0, p_before_first_graveyard -
// p_after_last_graveyard) averaged over checkpoints, when at least one
// GRAVEYARD_HATE_WINDOW impact exists; else the fallback 0.0.
func graveyardFragility(stress stresstransform.Payload, bucketID string) float64 {
	first, last, ok := stresstransform.FirstLastByOp(stress, bucketID, opGraveyardHate)
	if !ok {
		return 0.0
	}
	total := 0.0
	for _, cp := range model.Checkpoints {
		delta := first.ProbabilitiesBefore[cp] - last.ProbabilitiesAfter[cp]
		if delta < 0 {
			delta = 0
		}
		total += delta
	}
	return roundutil.Half6(total / float64(len(model.Checkpoints)))
}

// safeRatio applies the zero-denominator policy: num<=0 && den<=0 -> 1.0;
// num>0 && den<=0 -> 0.0; otherwise num/den, clamped to [0,1] and rounded to
// 6 decimal places.
func safeRatio(num, den float64) float64 {
	if num <= 0 && den <= 0 {
		return 1.0
	}
	if den <= 0 {
		return 0.0
	}
	return roundutil.Half6(roundutil.ClampProbability(num / den))
}

func mean(rows []BucketRatio) float64 {
	if len(rows) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range rows {
		total += r.Value
	}
	return roundutil.ClampProbability(total / float64(len(rows)))
}

func bucketIDSet(baseline checkpoint.Payload) map[string]struct{} {
	set := make(map[string]struct{}, len(baseline.Buckets))
	for _, b := range baseline.Buckets {
		set[b.BucketID] = struct{}{}
	}
	return set
}

func stressBucketIDSet(stress stresstransform.Payload) map[string]struct{} {
	set := make(map[string]struct{}, len(stress.Buckets))
	for _, b := range stress.Buckets {
		set[b.BucketID] = struct{}{}
	}
	return set
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func errAlignment() error {
	return &alignmentError{}
}

type alignmentError struct{}

func (*alignmentError) Error() string { return "RESILIENCE_BUCKET_ALIGNMENT_INVALID" }

// IsAlignmentError reports whether err is the bucket-set-mismatch error that
// the pipeline driver surfaces as layer status ERROR.
func IsAlignmentError(err error) bool {
	_, ok := err.(*alignmentError)
	return ok
}
