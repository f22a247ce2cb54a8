package packs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// BucketSubstitutionsVersion is the expected version tag for the pack.
const BucketSubstitutionsVersion = "bucket_substitutions_v1"

// ConditionalSubstitution is a requirement-flag-gated set of substitution
// weights, active only when RequirementFlag resolves to the exact boolean
// true.
type ConditionalSubstitution struct {
	RequirementFlag string
	Substitutions   map[string]float64
}

// BucketSubstitutionRule is one bucket's substitution rule set: the primary
// primitives that count directly toward K_primary, the always-active base
// substitution weights, and zero or more conditional overlays (bounded to a
// single level — no recursive expansion).
type BucketSubstitutionRule struct {
	BucketID          string
	PrimaryPrimitives []string
	BaseSubstitutions map[string]float64
	Conditional       []ConditionalSubstitution
}

// BucketSubstitutions is the full loaded pack, ordered ascending by bucket id.
type BucketSubstitutions struct {
	Version string
	Buckets []BucketSubstitutionRule
}

// LoadBucketSubstitutions reads and validates a bucket_substitutions_v1 pack
// file. Every substitution weight must be numeric in [0.0, 1.0].
func LoadBucketSubstitutions(p string) (BucketSubstitutions, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return BucketSubstitutions{}, fmt.Errorf("BUCKET_SUBSTITUTIONS_V1_MISSING: %w", err)
	}

	var doc struct {
		Version string `json:"version"`
		Buckets map[string]struct {
			PrimaryPrimitives []string            `json:"primary_primitives"`
			BaseSubstitutions map[string]float64  `json:"base_substitutions"`
			Conditional       []struct {
				RequirementFlag string              `json:"requirement_flag"`
				Substitutions   map[string]float64 `json:"substitutions"`
			} `json:"conditional_substitutions"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return BucketSubstitutions{}, fmt.Errorf("BUCKET_SUBSTITUTIONS_V1_INVALID_JSON: %w", err)
	}
	if doc.Version != BucketSubstitutionsVersion {
		return BucketSubstitutions{}, fmt.Errorf("BUCKET_SUBSTITUTIONS_V1_INVALID: version must equal %q", BucketSubstitutionsVersion)
	}

	bucketIDs := make([]string, 0, len(doc.Buckets))
	for id := range doc.Buckets {
		if id == "" {
			return BucketSubstitutions{}, fmt.Errorf("BUCKET_SUBSTITUTIONS_V1_INVALID: bucket id must be non-empty")
		}
		bucketIDs = append(bucketIDs, id)
	}
	sort.Strings(bucketIDs)

	out := BucketSubstitutions{Version: doc.Version, Buckets: make([]BucketSubstitutionRule, 0, len(bucketIDs))}
	for _, bucketID := range bucketIDs {
		rule := doc.Buckets[bucketID]
		if err := validateWeights(bucketID, "base_substitutions", rule.BaseSubstitutions); err != nil {
			return BucketSubstitutions{}, err
		}
		row := BucketSubstitutionRule{
			BucketID:          bucketID,
			PrimaryPrimitives: rule.PrimaryPrimitives,
			BaseSubstitutions: rule.BaseSubstitutions,
		}
		for _, cond := range rule.Conditional {
			if cond.RequirementFlag == "" {
				return BucketSubstitutions{}, fmt.Errorf("BUCKET_SUBSTITUTIONS_V1_INVALID: bucket %s has a conditional row with empty requirement_flag", bucketID)
			}
			if err := validateWeights(bucketID, "conditional_substitutions", cond.Substitutions); err != nil {
				return BucketSubstitutions{}, err
			}
			row.Conditional = append(row.Conditional, ConditionalSubstitution{
				RequirementFlag: cond.RequirementFlag,
				Substitutions:   cond.Substitutions,
			})
		}
		out.Buckets = append(out.Buckets, row)
	}
	return out, nil
}

func validateWeights(bucketID, field string, weights map[string]float64) error {
	for primitive, weight := range weights {
		if weight < 0.0 || weight > 1.0 {
			return fmt.Errorf("BUCKET_SUBSTITUTIONS_V1_INVALID: bucket %s.%s[%s] weight %v outside [0.0, 1.0]", bucketID, field, primitive, weight)
		}
	}
	return nil
}
