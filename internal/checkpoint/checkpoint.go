// Package checkpoint implements layer 7, ProbabilityCheckpoint: per-bucket
// P(≥1) at each fixed checkpoint, using the default mulligan policy's
// effective_n and the weight-multiplier-adjusted effective_K from layers 4
// and 5.
//
// spec.md §4.7 names only the substitution bucket's K_int as the input to
// hypergeom_p_ge_1 and never mentions the weight multiplier from §4.5; this
// implementation resolves that gap (documented in DESIGN.md) by applying
// the layer-5 stacked multiplier to the layer-4 effective_K — reclamped,
// rerounded, and refloored exactly as every other effective_K mutation in
// this pipeline — before evaluating checkpoints, since a multiplier layer
// that never feeds the probability math would be dead weight.
package checkpoint

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/probcore"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/substitution"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/weightmult"
)

// Version is the compiled version pin for this layer.
const Version = "probability_checkpoint_v1"

// BucketCheckpoints is one bucket's final effective_K and its P(≥1) at
// every fixed checkpoint.
type BucketCheckpoints struct {
	BucketID      string          `json:"bucket_id"`
	EffectiveK    float64         `json:"effective_k"`
	KInt          int             `json:"k_int"`
	PGe1          map[int]float64 `json:"p_ge_1_by_checkpoint"`
}

// Payload is the layer-7 output.
type Payload struct {
	model.Base
	DefaultPolicy string              `json:"default_policy"`
	NIntByCheckpoint map[int]int      `json:"n_int_by_checkpoint"`
	Buckets       []BucketCheckpoints `json:"buckets"`
}

// Run evaluates every substitution bucket's P(≥1) at every fixed checkpoint
// using effectiveNByCheckpoint, the default mulligan policy's effective_n
// row from layer 3.
func Run(subs substitution.Payload, weights weightmult.Payload, defaultPolicy string, effectiveNByCheckpoint map[int]float64, mulliganReady bool) (Payload, error) {
	if !subs.Base.Ready() {
		reason := "UPSTREAM_SUBSTITUTION_ENGINE_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}, nil
	}
	if !mulliganReady {
		reason := "UPSTREAM_MULLIGAN_MODEL_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}, nil
	}

	var codes []string
	nIntByCheckpoint := make(map[int]int, len(model.Checkpoints))
	for _, cp := range model.Checkpoints {
		effectiveN := roundutil.ClampK(effectiveNByCheckpoint[cp], model.DeckSize)
		nInt := roundutil.FloorInt(effectiveN)
		if float64(nInt) != effectiveN {
			codes = append(codes, "PROBABILITY_CHECKPOINT_EFFECTIVE_N_FLOORED")
		}
		nIntByCheckpoint[cp] = nInt
	}

	bucketIDs := make([]string, 0, len(subs.Buckets))
	for _, b := range subs.Buckets {
		bucketIDs = append(bucketIDs, b.BucketID)
	}
	sort.Strings(bucketIDs)

	buckets := make([]BucketCheckpoints, 0, len(bucketIDs))
	for _, bucketID := range bucketIDs {
		baseState, _ := substitution.BucketByID(subs, bucketID)
		multiplier := weightmult.MultiplierFor(weights, bucketID)

		rawK := baseState.EffectiveK * multiplier
		finalK := roundutil.Half6(roundutil.ClampK(rawK, model.DeckSize))
		finalKInt := roundutil.FloorInt(finalK)
		if roundutil.FloorInt(roundutil.Half6(rawK)) != finalKInt {
			codes = append(codes, "PROBABILITY_MATH_K_INT_POLICY_VIOLATION")
		}

		pGe1 := make(map[int]float64, len(model.Checkpoints))
		for _, cp := range model.Checkpoints {
			p, err := probcore.HypergeomPGe1(model.DeckSize, finalKInt, nIntByCheckpoint[cp])
			if err != nil {
				return Payload{}, err
			}
			pGe1[cp] = p
		}

		buckets = append(buckets, BucketCheckpoints{
			BucketID:   bucketID,
			EffectiveK: finalK,
			KInt:       finalKInt,
			PGe1:       pGe1,
		})
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	return Payload{
		Base:             model.Base{Version: Version, Status: status, Codes: model.SortedUniqueStrings(codes)},
		DefaultPolicy:    defaultPolicy,
		NIntByCheckpoint: nIntByCheckpoint,
		Buckets:          buckets,
	}, nil
}

// BucketByID returns the bucket checkpoints row for the given id, or false
// when absent.
func BucketByID(p Payload, bucketID string) (BucketCheckpoints, bool) {
	for _, b := range p.Buckets {
		if b.BucketID == bucketID {
			return b, true
		}
	}
	return BucketCheckpoints{}, false
}
