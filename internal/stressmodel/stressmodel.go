// Package stressmodel implements layer 8, StressModelDefinition: selects an
// operator sequence via profile/bracket/override precedence and reports it
// in canonical operator order (op ascending, then parameter tuple
// ascending) — never data-file order.
package stressmodel

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
)

// Version is the compiled version pin for this layer.
const Version = "stress_model_definition_v1"

// OperatorView is the JSON-facing view of a selected operator.
type OperatorView struct {
	Op                      string   `json:"op"`
	Count                   *int     `json:"count,omitempty"`
	ByTurn                  *int     `json:"by_turn,omitempty"`
	SurvivingEngineFraction *float64 `json:"surviving_engine_fraction,omitempty"`
	Turns                   *int     `json:"turns,omitempty"`
	GraveyardPenalty        *float64 `json:"graveyard_penalty,omitempty"`
	InflationFactor         *float64 `json:"inflation_factor,omitempty"`
}

// Payload is the layer-8 output.
type Payload struct {
	model.Base
	SelectedModelID string         `json:"selected_model_id"`
	SelectionSource string         `json:"selection_source"`
	Operators       []OperatorView `json:"operators"`
}

// Selection carries the runtime-recognized stress-model selection inputs.
type Selection struct {
	ProfileID           string
	BracketID           string
	RequestOverrideModelID string
}

// Run resolves the stress model for formatID using the fixed precedence:
// explicit override, by_profile_bracket, by_profile_id, by_bracket_id,
// default_model_id.
func Run(models packs.StressModels, loaded bool, formatID string, sel Selection) Payload {
	if !loaded {
		reason := "STRESS_MODELS_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}
	}

	row, ok := models.FormatDefaults[formatID]
	if !ok {
		reason := "FORMAT_STRESS_MODELS_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}
	}

	var codes []string
	modelID, source := "", ""

	if sel.RequestOverrideModelID != "" {
		if _, ok := row.Models[sel.RequestOverrideModelID]; ok {
			modelID, source = sel.RequestOverrideModelID, "request_override"
		} else {
			codes = append(codes, "STRESS_MODEL_OVERRIDE_UNKNOWN")
		}
	}

	if modelID == "" {
		for _, t := range row.Selection.ByProfileBracket {
			if t.ProfileID == sel.ProfileID && t.BracketID == sel.BracketID {
				modelID, source = t.ModelID, "by_profile_bracket"
				break
			}
		}
	}
	if modelID == "" {
		if id, ok := row.Selection.ByProfileID[sel.ProfileID]; ok {
			modelID, source = id, "by_profile_id"
		}
	}
	if modelID == "" {
		if id, ok := row.Selection.ByBracketID[sel.BracketID]; ok {
			modelID, source = id, "by_bracket_id"
		}
	}
	if modelID == "" {
		modelID, source = row.Selection.DefaultModelID, "default_model_id"
	}

	if modelID == "" {
		reason := "STRESS_MODEL_SELECTION_UNRESOLVED"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: model.SortedUniqueStrings(codes)}}
	}

	selectedModel, ok := row.Models[modelID]
	if !ok {
		reason := "STRESS_MODEL_ID_NOT_FOUND"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusError, ReasonCode: &reason, Codes: model.SortedUniqueStrings(codes)}}
	}

	ops := make([]packs.Operator, len(selectedModel.Operators))
	copy(ops, selectedModel.Operators)
	sort.Slice(ops, func(i, j int) bool { return ops[i].SortKey() < ops[j].SortKey() })

	views := make([]OperatorView, 0, len(ops))
	for _, op := range ops {
		views = append(views, toView(op))
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	return Payload{
		Base:            model.Base{Version: Version, Status: status, Codes: model.SortedUniqueStrings(codes)},
		SelectedModelID: modelID,
		SelectionSource: source,
		Operators:       views,
	}
}

func toView(op packs.Operator) OperatorView {
	v := OperatorView{Op: string(op.Op)}
	switch op.Op {
	case packs.OpTargetedRemoval:
		v.Count = intPtr(op.Count)
	case packs.OpBoardWipe:
		v.ByTurn = intPtr(op.ByTurnWipe)
		v.SurvivingEngineFraction = floatPtr(op.SurvivingEngineFraction)
	case packs.OpGraveyardHateWindow:
		v.Turns = intPtr(op.Turns)
		v.GraveyardPenalty = floatPtr(op.GraveyardPenalty)
	case packs.OpStaxTax:
		v.ByTurn = intPtr(op.ByTurnTax)
		v.InflationFactor = floatPtr(op.InflationFactor)
	}
	return v
}

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

// Operators returns the canonically ordered packs.Operator sequence for the
// selected model, re-deriving it from the resolved selection. Callers that
// need the tagged-variant form (StressTransform) use this rather than
// re-parsing the JSON view.
func Operators(models packs.StressModels, formatID, modelID string) ([]packs.Operator, bool) {
	row, ok := models.FormatDefaults[formatID]
	if !ok {
		return nil, false
	}
	selectedModel, ok := row.Models[modelID]
	if !ok {
		return nil, false
	}
	ops := make([]packs.Operator, len(selectedModel.Operators))
	copy(ops, selectedModel.Operators)
	sort.Slice(ops, func(i, j int) bool { return ops[i].SortKey() < ops[j].SortKey() })
	return ops, true
}
