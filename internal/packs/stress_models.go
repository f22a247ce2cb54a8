package packs

import (
	"encoding/json"
	"fmt"
	"os"
)

// StressModelsVersion is the expected version tag for the pack.
const StressModelsVersion = "stress_models_v1"

// OperatorOp is the closed tag for a stress operator's kind.
type OperatorOp string

const (
	OpTargetedRemoval     OperatorOp = "TARGETED_REMOVAL"
	OpBoardWipe           OperatorOp = "BOARD_WIPE"
	OpGraveyardHateWindow OperatorOp = "GRAVEYARD_HATE_WINDOW"
	OpStaxTax             OperatorOp = "STAX_TAX"
)

// Operator is a single tagged-variant stress operator, parsed and validated
// from stress_models_v1. Exactly one of the numeric fields relevant to Op
// is populated; consumers pattern-match on Op exhaustively.
type Operator struct {
	Op OperatorOp

	// TARGETED_REMOVAL
	Count int

	// BOARD_WIPE
	ByTurnWipe             int
	SurvivingEngineFraction float64

	// GRAVEYARD_HATE_WINDOW
	Turns             int
	GraveyardPenalty  float64

	// STAX_TAX
	ByTurnTax       int
	InflationFactor float64
}

// SortKey is the canonical ordering key for operators within StressTransform:
// op ascending, then parameter tuple ascending.
func (o Operator) SortKey() string {
	switch o.Op {
	case OpTargetedRemoval:
		return fmt.Sprintf("%s\x00%010d", o.Op, o.Count)
	case OpBoardWipe:
		return fmt.Sprintf("%s\x00%010d\x00%020.6f", o.Op, o.ByTurnWipe, o.SurvivingEngineFraction)
	case OpGraveyardHateWindow:
		return fmt.Sprintf("%s\x00%010d\x00%020.6f", o.Op, o.Turns, o.GraveyardPenalty)
	case OpStaxTax:
		return fmt.Sprintf("%s\x00%010d\x00%020.6f", o.Op, o.ByTurnTax, o.InflationFactor)
	default:
		return string(o.Op)
	}
}

// StressModel is a named, ordered operator sequence.
type StressModel struct {
	ModelID   string
	Operators []Operator
}

// ProfileBracketSelector is one (profile_id, bracket_id) -> model_id row.
type ProfileBracketSelector struct {
	ProfileID string
	BracketID string
	ModelID   string
}

// StressSelection is one format's model-selection precedence table.
type StressSelection struct {
	DefaultModelID  string
	ByProfileID     map[string]string
	ByBracketID     map[string]string
	ByProfileBracket []ProfileBracketSelector
}

// FormatStressModels is one format's selection table plus its model catalog.
type FormatStressModels struct {
	Selection StressSelection
	Models    map[string]StressModel
}

// StressModels is the full loaded pack.
type StressModels struct {
	Version        string
	FormatDefaults map[string]FormatStressModels
}

// LoadStressModels reads and validates a stress_models_v1 pack file.
func LoadStressModels(p string) (StressModels, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return StressModels{}, fmt.Errorf("STRESS_MODELS_V1_MISSING: %w", err)
	}

	var doc struct {
		Version        string `json:"version"`
		FormatDefaults map[string]struct {
			Selection struct {
				DefaultModelID   string            `json:"default_model_id"`
				ByProfileID      map[string]string `json:"by_profile_id"`
				ByBracketID      map[string]string `json:"by_bracket_id"`
				ByProfileBracket []struct {
					ProfileID string `json:"profile_id"`
					BracketID string `json:"bracket_id"`
					ModelID   string `json:"model_id"`
				} `json:"by_profile_bracket"`
			} `json:"selection"`
			Models map[string]struct {
				Operators []struct {
					Op                      string  `json:"op"`
					Count                   *int    `json:"count"`
					ByTurn                  *int    `json:"by_turn"`
					SurvivingEngineFraction *float64 `json:"surviving_engine_fraction"`
					Turns                   *int    `json:"turns"`
					GraveyardPenalty        *float64 `json:"graveyard_penalty"`
					InflationFactor         *float64 `json:"inflation_factor"`
				} `json:"operators"`
			} `json:"models"`
		} `json:"format_defaults"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return StressModels{}, fmt.Errorf("STRESS_MODELS_V1_INVALID_JSON: %w", err)
	}
	if doc.Version != StressModelsVersion {
		return StressModels{}, fmt.Errorf("STRESS_MODELS_V1_INVALID: version must equal %q", StressModelsVersion)
	}

	out := StressModels{Version: doc.Version, FormatDefaults: make(map[string]FormatStressModels, len(doc.FormatDefaults))}
	for format, row := range doc.FormatDefaults {
		models := make(map[string]StressModel, len(row.Models))
		for modelID, model := range row.Models {
			ops := make([]Operator, 0, len(model.Operators))
			for i, raw := range model.Operators {
				op, err := parseOperator(format, modelID, i, raw.Op, raw.Count, raw.ByTurn, raw.SurvivingEngineFraction, raw.Turns, raw.GraveyardPenalty, raw.InflationFactor)
				if err != nil {
					return StressModels{}, err
				}
				ops = append(ops, op)
			}
			models[modelID] = StressModel{ModelID: modelID, Operators: ops}
		}

		byProfileBracket := make([]ProfileBracketSelector, 0, len(row.Selection.ByProfileBracket))
		for _, t := range row.Selection.ByProfileBracket {
			byProfileBracket = append(byProfileBracket, ProfileBracketSelector{ProfileID: t.ProfileID, BracketID: t.BracketID, ModelID: t.ModelID})
		}

		out.FormatDefaults[format] = FormatStressModels{
			Selection: StressSelection{
				DefaultModelID:   row.Selection.DefaultModelID,
				ByProfileID:      row.Selection.ByProfileID,
				ByBracketID:      row.Selection.ByBracketID,
				ByProfileBracket: byProfileBracket,
			},
			Models: models,
		}
	}

	return out, nil
}

func parseOperator(format, modelID string, idx int, op string, count, byTurn *int, survivingFrac *float64, turns *int, gyPenalty, inflation *float64) (Operator, error) {
	ctx := fmt.Sprintf("%s/%s.operators[%d]", format, modelID, idx)
	switch OperatorOp(op) {
	case OpTargetedRemoval:
		if count == nil || *count < 0 {
			return Operator{}, fmt.Errorf("STRESS_MODELS_V1_INVALID: %s TARGETED_REMOVAL requires count >= 0", ctx)
		}
		return Operator{Op: OpTargetedRemoval, Count: *count}, nil
	case OpBoardWipe:
		if survivingFrac == nil || *survivingFrac < 0.0 || *survivingFrac > 1.0 {
			return Operator{}, fmt.Errorf("STRESS_MODELS_V1_INVALID: %s BOARD_WIPE requires surviving_engine_fraction in [0,1]", ctx)
		}
		turn := 0
		if byTurn != nil {
			turn = *byTurn
		}
		return Operator{Op: OpBoardWipe, ByTurnWipe: turn, SurvivingEngineFraction: *survivingFrac}, nil
	case OpGraveyardHateWindow:
		if gyPenalty == nil || *gyPenalty < 0.0 || *gyPenalty > 1.0 {
			return Operator{}, fmt.Errorf("STRESS_MODELS_V1_INVALID: %s GRAVEYARD_HATE_WINDOW requires graveyard_penalty in [0,1]", ctx)
		}
		t := 0
		if turns != nil {
			t = *turns
		}
		return Operator{Op: OpGraveyardHateWindow, Turns: t, GraveyardPenalty: *gyPenalty}, nil
	case OpStaxTax:
		if inflation == nil || *inflation < 0.0 {
			return Operator{}, fmt.Errorf("STRESS_MODELS_V1_INVALID: %s STAX_TAX requires inflation_factor >= 0", ctx)
		}
		turn := 0
		if byTurn != nil {
			turn = *byTurn
		}
		return Operator{Op: OpStaxTax, ByTurnTax: turn, InflationFactor: *inflation}, nil
	default:
		return Operator{}, fmt.Errorf("STRESS_MODELS_V1_INVALID: %s has unknown op %q", ctx, op)
	}
}
