package packs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// MulliganAssumptionsVersion is the expected version tag for the pack.
const MulliganAssumptionsVersion = "mulligan_assumptions_v1"

// RequiredMulliganPolicies is the closed, fixed policy-name set every format
// row must define.
var RequiredMulliganPolicies = []string{"DRAW10_SHUFFLE3", "FRIENDLY", "NORMAL"}

// RequiredMulliganCheckpoints is the closed, fixed checkpoint set every
// policy row must define, independent of the pipeline-wide Checkpoints
// ordering used downstream.
var RequiredMulliganCheckpoints = []int{7, 9, 10, 12}

// FormatMulliganDefaults is one format's mulligan row: a default policy id
// plus the per-policy, per-checkpoint effective draw-size assumptions.
type FormatMulliganDefaults struct {
	DefaultPolicy string
	Policies      map[string]map[int]float64
}

// MulliganAssumptions is the full loaded pack: root {version, format_defaults}.
type MulliganAssumptions struct {
	Version        string
	FormatDefaults map[string]FormatMulliganDefaults
}

// LoadMulliganAssumptions reads and validates a mulligan_assumptions_v1 pack
// file: every format must define a default_policy and all three required
// policies, and every policy must define all four required checkpoints
// (accepting checkpoint keys given as either a JSON number or a numeric
// string).
func LoadMulliganAssumptions(p string) (MulliganAssumptions, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_MISSING: %w", err)
	}

	var doc struct {
		Version        string `json:"version"`
		FormatDefaults map[string]struct {
			DefaultPolicy string                             `json:"default_policy"`
			Policies      map[string]struct {
				EffectiveNByCheckpoint map[string]float64 `json:"effective_n_by_checkpoint"`
			} `json:"policies"`
		} `json:"format_defaults"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID_JSON: %w", err)
	}
	if doc.Version != MulliganAssumptionsVersion {
		return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID: version must equal %q", MulliganAssumptionsVersion)
	}

	out := MulliganAssumptions{Version: doc.Version, FormatDefaults: make(map[string]FormatMulliganDefaults, len(doc.FormatDefaults))}
	for format, row := range doc.FormatDefaults {
		if format == "" {
			return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID: format name must be non-empty")
		}
		if row.DefaultPolicy == "" {
			return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID: format %s missing default_policy", format)
		}
		for _, required := range RequiredMulliganPolicies {
			if _, ok := row.Policies[required]; !ok {
				return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID: format %s missing required policy %s", format, required)
			}
		}
		if _, ok := row.Policies[row.DefaultPolicy]; !ok {
			return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID: format %s default_policy %s is not a defined policy", format, row.DefaultPolicy)
		}

		outPolicies := make(map[string]map[int]float64, len(row.Policies))
		for policyName, policy := range row.Policies {
			outCheckpoints := make(map[int]float64, len(policy.EffectiveNByCheckpoint))
			for rawKey, value := range policy.EffectiveNByCheckpoint {
				key, err := strconv.Atoi(rawKey)
				if err != nil {
					return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID: %s/%s has non-numeric checkpoint key %q", format, policyName, rawKey)
				}
				outCheckpoints[key] = value
			}
			for _, required := range RequiredMulliganCheckpoints {
				if _, ok := outCheckpoints[required]; !ok {
					return MulliganAssumptions{}, fmt.Errorf("MULLIGAN_ASSUMPTIONS_V1_INVALID: %s/%s missing required checkpoint %d", format, policyName, required)
				}
			}
			outPolicies[policyName] = outCheckpoints
		}
		out.FormatDefaults[format] = FormatMulliganDefaults{DefaultPolicy: row.DefaultPolicy, Policies: outPolicies}
	}

	return out, nil
}

// SortedPolicyNames returns a format's policy names in sorted order, the
// iteration order the mulligan layer uses.
func SortedPolicyNames(policies map[string]map[int]float64) []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
