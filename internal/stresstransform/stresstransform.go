// Package stresstransform implements layer 9, StressTransform: applies the
// operator sequence selected by layer 8 in canonical order against the
// layer-7 baseline, in two stages. K-stage operators (TARGETED_REMOVAL,
// BOARD_WIPE, GRAVEYARD_HATE_WINDOW) mutate effective_K and force a
// recompute of p_ge_1 at every checkpoint; the probability-stage operator
// (STAX_TAX) mutates checkpoint probabilities directly, leaving K alone.
// by_turn/turns metadata is retained on the recorded impact but never gates
// which checkpoints an operator applies to — in v1 every operator applies
// to all four fixed checkpoints.
package stresstransform

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/checkpoint"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/probcore"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/stressmodel"
)

// Version is the compiled version pin for this layer.
const Version = "stress_transform_v1"

// OperatorImpact records one operator's before/after effect on one bucket.
type OperatorImpact struct {
	Op                string          `json:"op"`
	BucketID          string          `json:"bucket_id"`
	EffectiveKBefore  float64         `json:"effective_k_before"`
	EffectiveKAfter   float64         `json:"effective_k_after"`
	ProbabilitiesBefore map[int]float64 `json:"probabilities_before"`
	ProbabilitiesAfter  map[int]float64 `json:"probabilities_after"`
}

// BucketState is one bucket's post-stress effective_K, K_int, and
// checkpoint probabilities.
type BucketState struct {
	BucketID   string          `json:"bucket_id"`
	EffectiveK float64         `json:"effective_k"`
	KInt       int             `json:"k_int"`
	PGe1       map[int]float64 `json:"p_ge_1_by_checkpoint"`
}

// Payload is the layer-9 output.
type Payload struct {
	model.Base
	SelectedModelID string            `json:"selected_model_id"`
	Buckets         []BucketState     `json:"buckets"`
	OperatorImpacts []OperatorImpact  `json:"operator_impacts"`
}

// Run applies stress.Operators (already in canonical order) to the
// checkpoint layer's baseline bucket states, for nInt the per-checkpoint
// n_int row used by layer 7.
func Run(stress stressmodel.Payload, baseline checkpoint.Payload, ops []packs.Operator, nInt map[int]int) (Payload, error) {
	if !stress.Base.Ready() {
		reason := "UPSTREAM_STRESS_MODEL_DEFINITION_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}, nil
	}
	if !baseline.Base.Ready() {
		reason := "UPSTREAM_PROBABILITY_CHECKPOINT_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}, nil
	}

	bucketIDs := make([]string, 0, len(baseline.Buckets))
	for _, b := range baseline.Buckets {
		bucketIDs = append(bucketIDs, b.BucketID)
	}
	sort.Strings(bucketIDs)

	current := make(map[string]BucketState, len(bucketIDs))
	for _, bucketID := range bucketIDs {
		b, _ := checkpoint.BucketByID(baseline, bucketID)
		current[bucketID] = BucketState{
			BucketID:   bucketID,
			EffectiveK: b.EffectiveK,
			KInt:       b.KInt,
			PGe1:       copyProbs(b.PGe1),
		}
	}

	var impacts []OperatorImpact
	for _, op := range orderedByStage(ops) {
		for _, bucketID := range bucketIDs {
			before := current[bucketID]
			after, err := applyOperator(op, before, nInt)
			if err != nil {
				return Payload{}, err
			}
			current[bucketID] = after
			impacts = append(impacts, OperatorImpact{
				Op:                  string(op.Op),
				BucketID:            bucketID,
				EffectiveKBefore:    before.EffectiveK,
				EffectiveKAfter:     after.EffectiveK,
				ProbabilitiesBefore: before.PGe1,
				ProbabilitiesAfter:  after.PGe1,
			})
		}
	}

	buckets := make([]BucketState, 0, len(bucketIDs))
	for _, bucketID := range bucketIDs {
		buckets = append(buckets, current[bucketID])
	}
	if impacts == nil {
		impacts = []OperatorImpact{}
	}

	return Payload{
		Base:            model.Base{Version: Version, Status: model.StatusOK, Codes: []string{}},
		SelectedModelID: stress.SelectedModelID,
		Buckets:         buckets,
		OperatorImpacts: impacts,
	}, nil
}

// orderedByStage partitions ops into the K-stage group (TARGETED_REMOVAL,
// BOARD_WIPE, GRAVEYARD_HATE_WINDOW) followed by the probability-stage
// group (STAX_TAX), preserving each operator's relative position from ops
// within its stage. ops arrives already in canonical SortKey order, so this
// is a stable partition, not a re-sort: every K-stage operator runs and
// forces its p_ge_1 recompute before any probability-stage operator can
// inflate the result, matching §4.9's two-stage model.
func orderedByStage(ops []packs.Operator) []packs.Operator {
	ordered := make([]packs.Operator, 0, len(ops))
	for _, op := range ops {
		if op.Op != packs.OpStaxTax {
			ordered = append(ordered, op)
		}
	}
	for _, op := range ops {
		if op.Op == packs.OpStaxTax {
			ordered = append(ordered, op)
		}
	}
	return ordered
}

func applyOperator(op packs.Operator, state BucketState, nInt map[int]int) (BucketState, error) {
	switch op.Op {
	case packs.OpTargetedRemoval:
		return applyKStage(state, nInt, roundutil.ClampK(state.EffectiveK-float64(op.Count), model.DeckSize))
	case packs.OpBoardWipe:
		return applyKStage(state, nInt, roundutil.ClampK(state.EffectiveK*op.SurvivingEngineFraction, model.DeckSize))
	case packs.OpGraveyardHateWindow:
		return applyKStage(state, nInt, roundutil.ClampK(state.EffectiveK*op.GraveyardPenalty, model.DeckSize))
	case packs.OpStaxTax:
		return applyProbabilityStage(state, op.InflationFactor)
	default:
		return state, nil
	}
}

// applyKStage mutates effective_K (rounding to 6 decimals, flooring to
// K_int) and re-evaluates p_ge_1 at every fixed checkpoint.
func applyKStage(state BucketState, nInt map[int]int, newK float64) (BucketState, error) {
	kPrime := roundutil.Half6(newK)
	kInt := roundutil.FloorInt(kPrime)

	probs := make(map[int]float64, len(model.Checkpoints))
	for _, cp := range model.Checkpoints {
		p, err := probcore.HypergeomPGe1(model.DeckSize, kInt, nInt[cp])
		if err != nil {
			return BucketState{}, err
		}
		probs[cp] = p
	}

	return BucketState{BucketID: state.BucketID, EffectiveK: kPrime, KInt: kInt, PGe1: probs}, nil
}

// applyProbabilityStage mutates checkpoint probabilities directly by the
// inflation factor, leaving K untouched.
func applyProbabilityStage(state BucketState, inflationFactor float64) (BucketState, error) {
	probs := make(map[int]float64, len(state.PGe1))
	for cp, p := range state.PGe1 {
		probs[cp] = roundutil.Half6(roundutil.ClampProbability(p * inflationFactor))
	}
	return BucketState{BucketID: state.BucketID, EffectiveK: state.EffectiveK, KInt: state.KInt, PGe1: probs}, nil
}

func copyProbs(in map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// BucketByID returns the post-stress bucket state with the given id, or
// false when absent.
func BucketByID(p Payload, bucketID string) (BucketState, bool) {
	for _, b := range p.Buckets {
		if b.BucketID == bucketID {
			return b, true
		}
	}
	return BucketState{}, false
}

// FirstLastByOp returns the first and last impact in p.OperatorImpacts
// matching op for bucketID, or ok=false when none exist.
func FirstLastByOp(p Payload, bucketID string, op string) (first, last OperatorImpact, ok bool) {
	for _, impact := range p.OperatorImpacts {
		if impact.BucketID != bucketID || impact.Op != op {
			continue
		}
		if !ok {
			first = impact
		}
		last = impact
		ok = true
	}
	return
}
