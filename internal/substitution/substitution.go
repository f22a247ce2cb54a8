// Package substitution implements layer 4, SubstitutionEngine: per-bucket
// effective_K combining primary primitives with requirement-gated
// substitution weights, loaded from bucket_substitutions_v1.
package substitution

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
)

// Version is the compiled version pin for this layer.
const Version = "substitution_engine_v1"

// SubstitutionTerm is one aggregated-primitive contribution row, ordered
// ascending by primitive id.
type SubstitutionTerm struct {
	PrimitiveID  string  `json:"primitive_id"`
	Weight       float64 `json:"weight"`
	KSubstitute  int     `json:"k_substitute"`
	Contribution float64 `json:"contribution"`
}

// BucketState is one bucket's computed effective_K, ordered ascending by
// bucket id.
type BucketState struct {
	BucketID          string              `json:"bucket_id"`
	KPrimary          int                 `json:"k_primary"`
	SubstitutionTerms []SubstitutionTerm `json:"substitution_terms"`
	EffectiveK        float64             `json:"effective_k"`
	KInt              int                 `json:"k_int"`
}

// Payload is the layer-4 output.
type Payload struct {
	model.Base
	Buckets []BucketState `json:"buckets"`
}

// Run computes every bucket's effective_K. requirements is nil when the
// upstream EngineRequirements payload is unavailable (conditional rules are
// treated as inactive and substitutions are limited to the base set).
func Run(index *model.PrimitiveIndex, subs packs.BucketSubstitutions, requirements map[string]bool, requirementsAvailable bool) Payload {
	var codes []string
	if !requirementsAvailable {
		codes = append(codes, "ENGINE_REQUIREMENTS_UNAVAILABLE")
	}

	if index == nil {
		reason := "PRIMITIVE_INDEX_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}
	}

	norm := index.Normalized()

	buckets := make([]BucketState, 0, len(subs.Buckets))
	for _, rule := range subs.Buckets {
		state, flagCodes := computeBucket(norm, rule, requirements, requirementsAvailable)
		buckets = append(buckets, state)
		codes = append(codes, flagCodes...)
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	return Payload{
		Base:    model.Base{Version: Version, Status: status, Codes: model.SortedUniqueStrings(codes)},
		Buckets: buckets,
	}
}

func computeBucket(index model.PrimitiveIndex, rule packs.BucketSubstitutionRule, requirements map[string]bool, requirementsAvailable bool) (BucketState, []string) {
	primarySet := make(map[string]struct{}, len(rule.PrimaryPrimitives))
	for _, p := range rule.PrimaryPrimitives {
		primarySet[p] = struct{}{}
	}
	kPrimary := len(index.SlotsWithAny(primarySet))

	aggregated := map[string]float64{}
	for primitive, weight := range rule.BaseSubstitutions {
		aggregated[primitive] += weight
	}

	var codes []string
	for _, cond := range rule.Conditional {
		active, flagCode := flagActive(requirements, requirementsAvailable, cond.RequirementFlag)
		if flagCode != "" {
			codes = append(codes, flagCode)
		}
		if !active {
			continue
		}
		for primitive, weight := range cond.Substitutions {
			aggregated[primitive] += weight
		}
	}

	primitiveIDs := make([]string, 0, len(aggregated))
	for p := range aggregated {
		primitiveIDs = append(primitiveIDs, p)
	}
	sort.Strings(primitiveIDs)

	terms := make([]SubstitutionTerm, 0, len(primitiveIDs))
	total := float64(kPrimary)
	for _, primitive := range primitiveIDs {
		weight := aggregated[primitive]
		kSub := len(index.SlotsWithPrimitive(primitive))
		contribution := weight * float64(kSub)
		total += contribution
		terms = append(terms, SubstitutionTerm{
			PrimitiveID:  primitive,
			Weight:       roundutil.Half6(weight),
			KSubstitute:  kSub,
			Contribution: roundutil.Half6(contribution),
		})
	}

	effectiveK := roundutil.Half6(roundutil.ClampK(total, model.DeckSize))

	return BucketState{
		BucketID:          rule.BucketID,
		KPrimary:          kPrimary,
		SubstitutionTerms: terms,
		EffectiveK:        effectiveK,
		KInt:              roundutil.FloorInt(effectiveK),
	}, codes
}

// flagActive reports whether a conditional substitution's requirement flag
// resolves to exactly boolean true, and the WARN code to emit (empty when
// none) when the flag is missing or the upstream payload was unavailable.
func flagActive(requirements map[string]bool, requirementsAvailable bool, flag string) (bool, string) {
	if !requirementsAvailable {
		return false, ""
	}
	value, ok := requirements[flag]
	if !ok {
		return false, "SUBSTITUTION_REQUIREMENT_FLAG_UNAVAILABLE"
	}
	return value, ""
}

// BucketByID returns the bucket state with the given id, or false when absent.
func BucketByID(p Payload, bucketID string) (BucketState, bool) {
	for _, b := range p.Buckets {
		if b.BucketID == bucketID {
			return b, true
		}
	}
	return BucketState{}, false
}
