// Package weightmult implements layer 5, WeightMultiplier: per-bucket
// stacked multiplicative weights from weight_rules_v1, gated by exact
// boolean-true requirement flags. Runtime expression evaluation is
// forbidden — flags are matched by equality only, never interpreted.
package weightmult

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
)

// Version is the compiled version pin for this layer.
const Version = "weight_multiplier_v1"

// AppliedRule is one rule that was active for its target bucket.
type AppliedRule struct {
	TargetBucket string  `json:"target_bucket"`
	RuleID       string  `json:"rule_id"`
	Multiplier   float64 `json:"multiplier"`
}

// BucketMultiplier is one bucket's stacked multiplier result.
type BucketMultiplier struct {
	BucketID   string  `json:"bucket_id"`
	Multiplier float64 `json:"multiplier"`
}

// Payload is the layer-5 output.
type Payload struct {
	model.Base
	Multipliers  []BucketMultiplier `json:"multipliers"`
	AppliedRules []AppliedRule      `json:"applied_rules"`
}

// Run computes every candidate bucket's stacked multiplier. substitutionBuckets
// is the deterministic set of bucket ids from layer 4; requirements is nil
// when upstream EngineRequirements is unavailable (every rule is inactive).
func Run(rules packs.WeightRules, substitutionBuckets []string, requirements map[string]bool, requirementsAvailable bool) Payload {
	candidates := candidateBuckets(substitutionBuckets, rules.Rules)

	var codes []string
	if !requirementsAvailable {
		codes = append(codes, "ENGINE_REQUIREMENTS_UNAVAILABLE")
	}

	sortedRules := make([]packs.WeightRule, len(rules.Rules))
	copy(sortedRules, rules.Rules)
	sort.Slice(sortedRules, func(i, j int) bool {
		if sortedRules[i].TargetBucket != sortedRules[j].TargetBucket {
			return sortedRules[i].TargetBucket < sortedRules[j].TargetBucket
		}
		return sortedRules[i].RuleID < sortedRules[j].RuleID
	})

	totals := make(map[string]float64, len(candidates))
	for _, bucket := range candidates {
		totals[bucket] = 1.0
	}

	var applied []AppliedRule
	for _, rule := range sortedRules {
		if requirementsAvailable {
			if value, ok := requirements[rule.RequirementFlag]; !ok || value != true {
				continue
			}
		} else {
			continue
		}
		totals[rule.TargetBucket] = roundutil.Half6(totals[rule.TargetBucket] * rule.Multiplier)
		applied = append(applied, AppliedRule{TargetBucket: rule.TargetBucket, RuleID: rule.RuleID, Multiplier: rule.Multiplier})
	}

	multipliers := make([]BucketMultiplier, 0, len(candidates))
	for _, bucket := range candidates {
		multipliers = append(multipliers, BucketMultiplier{BucketID: bucket, Multiplier: totals[bucket]})
	}

	if applied == nil {
		applied = []AppliedRule{}
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	return Payload{
		Base:         model.Base{Version: Version, Status: status, Codes: model.SortedUniqueStrings(codes)},
		Multipliers:  multipliers,
		AppliedRules: applied,
	}
}

// candidateBuckets returns the deterministic sorted union of substitution
// bucket ids and every rule's target_bucket.
func candidateBuckets(substitutionBuckets []string, rules []packs.WeightRule) []string {
	set := make(map[string]struct{}, len(substitutionBuckets)+len(rules))
	for _, b := range substitutionBuckets {
		set[b] = struct{}{}
	}
	for _, r := range rules {
		set[r.TargetBucket] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// MultiplierFor returns a bucket's stacked multiplier, defaulting to 1.0
// when the bucket was not a candidate.
func MultiplierFor(p Payload, bucketID string) float64 {
	for _, m := range p.Multipliers {
		if m.BucketID == bucketID {
			return m.Multiplier
		}
	}
	return 1.0
}
