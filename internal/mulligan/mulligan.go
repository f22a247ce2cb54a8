// Package mulligan implements layer 3, MulliganModel: per-policy
// effective_n at the fixed checkpoints {7,9,10,12}, loaded from
// mulligan_assumptions_v1 and clamped/rounded per the pipeline's shared
// rounding rule.
package mulligan

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
)

// Version is the compiled version pin for this layer.
const Version = "mulligan_model_v1"

// CheckpointRow is one policy's effective_n at every fixed checkpoint.
type CheckpointRow struct {
	PolicyID             string             `json:"policy_id"`
	EffectiveNByCheckpoint map[int]float64 `json:"effective_n_by_checkpoint"`
}

// Payload is the layer-3 output.
type Payload struct {
	model.Base
	FormatID      string          `json:"format_id"`
	DefaultPolicy string          `json:"default_policy"`
	Policies      []CheckpointRow `json:"policies"`
}

// Run computes every policy's clamped, rounded effective_n at each fixed
// checkpoint for formatID. assumptions is the loaded mulligan_assumptions_v1
// pack; loaded reports whether the pack itself was available at all.
func Run(assumptions packs.MulliganAssumptions, loaded bool, formatID string) Payload {
	if !loaded {
		reason := "MULLIGAN_ASSUMPTIONS_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}
	}

	row, ok := assumptions.FormatDefaults[formatID]
	if !ok {
		reason := "FORMAT_ASSUMPTIONS_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}
	}

	policyNames := packs.SortedPolicyNames(row.Policies)
	rows := make([]CheckpointRow, 0, len(policyNames))
	for _, name := range policyNames {
		checkpoints := row.Policies[name]
		out := make(map[int]float64, len(model.Checkpoints))
		for _, cp := range model.Checkpoints {
			raw := checkpoints[cp]
			clamped := roundutil.ClampK(raw, model.DeckSize)
			out[cp] = roundutil.Half6(clamped)
		}
		rows = append(rows, CheckpointRow{PolicyID: name, EffectiveNByCheckpoint: out})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PolicyID < rows[j].PolicyID })

	return Payload{
		Base:          model.Base{Version: Version, Status: model.StatusOK, Codes: []string{}},
		FormatID:      formatID,
		DefaultPolicy: row.DefaultPolicy,
		Policies:      rows,
	}
}

// DefaultPolicyCheckpoints returns the default policy's effective_n map, or
// nil with ok=false when the payload is not ready or the default policy row
// is absent.
func DefaultPolicyCheckpoints(p Payload) (map[int]float64, bool) {
	if !p.Base.Ready() {
		return nil, false
	}
	for _, row := range p.Policies {
		if row.PolicyID == p.DefaultPolicy {
			return row.EffectiveNByCheckpoint, true
		}
	}
	return nil, false
}
