package packs

import (
	"encoding/json"
	"fmt"
	"os"
)

// WeightRulesVersion is the expected version tag for the pack.
const WeightRulesVersion = "weight_rules_v1"

// WeightRule is one named weight-multiplier rule: active only when
// RequirementFlag resolves to the exact boolean true, in which case
// Multiplier stacks multiplicatively into TargetBucket's running total.
type WeightRule struct {
	RuleID          string
	TargetBucket    string
	RequirementFlag string
	Multiplier      float64
}

// WeightRules is the full loaded pack.
type WeightRules struct {
	Version string
	Rules   []WeightRule
}

// LoadWeightRules reads and validates a weight_rules_v1 pack file: every
// rule must carry non-empty rule_id/target_bucket/requirement_flag and a
// non-negative numeric multiplier.
func LoadWeightRules(p string) (WeightRules, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return WeightRules{}, fmt.Errorf("WEIGHT_RULES_V1_MISSING: %w", err)
	}

	var doc struct {
		Version string `json:"version"`
		Rules   []struct {
			RuleID          string  `json:"rule_id"`
			TargetBucket    string  `json:"target_bucket"`
			RequirementFlag string  `json:"requirement_flag"`
			Multiplier      float64 `json:"multiplier"`
		} `json:"rules"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return WeightRules{}, fmt.Errorf("WEIGHT_RULES_V1_INVALID_JSON: %w", err)
	}
	if doc.Version != WeightRulesVersion {
		return WeightRules{}, fmt.Errorf("WEIGHT_RULES_V1_INVALID: version must equal %q", WeightRulesVersion)
	}

	out := WeightRules{Version: doc.Version}
	seen := make(map[string]struct{}, len(doc.Rules))
	for i, rule := range doc.Rules {
		if rule.RuleID == "" || rule.TargetBucket == "" || rule.RequirementFlag == "" {
			return WeightRules{}, fmt.Errorf("WEIGHT_RULES_V1_INVALID: rules[%d] missing a required string field", i)
		}
		if rule.Multiplier < 0 {
			return WeightRules{}, fmt.Errorf("WEIGHT_RULES_V1_INVALID: rules[%d].multiplier must be non-negative", i)
		}
		if _, dup := seen[rule.RuleID]; dup {
			return WeightRules{}, fmt.Errorf("WEIGHT_RULES_V1_INVALID: duplicate rule_id %s", rule.RuleID)
		}
		seen[rule.RuleID] = struct{}{}
		out.Rules = append(out.Rules, WeightRule{
			RuleID:          rule.RuleID,
			TargetBucket:    rule.TargetBucket,
			RequirementFlag: rule.RequirementFlag,
			Multiplier:      rule.Multiplier,
		})
	}
	return out, nil
}
