package stressmodel

import (
	"testing"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
)

func sampleModels() packs.StressModels {
	return packs.StressModels{
		FormatDefaults: map[string]packs.FormatStressModels{
			"commander": {
				Selection: packs.StressSelection{
					DefaultModelID: "identity",
					ByProfileID:    map[string]string{"focused": "focused_model"},
					ByBracketID:    map[string]string{"B2": "b2_model"},
					ByProfileBracket: []packs.ProfileBracketSelector{
						{ProfileID: "focused", BracketID: "B2", ModelID: "combo_model"},
					},
				},
				Models: map[string]packs.StressModel{
					"identity":     {ModelID: "identity", Operators: nil},
					"focused_model": {ModelID: "focused_model"},
					"b2_model":     {ModelID: "b2_model"},
					"combo_model":  {ModelID: "combo_model"},
				},
			},
		},
	}
}

func TestRunSkipsWhenNotLoaded(t *testing.T) {
	got := Run(packs.StressModels{}, false, "commander", Selection{})
	if got.Status != model.StatusSkip {
		t.Fatalf("expected SKIP, got %s", got.Status)
	}
}

func TestRunSkipsWhenFormatMissing(t *testing.T) {
	got := Run(sampleModels(), true, "standard", Selection{})
	if got.Status != model.StatusSkip {
		t.Fatalf("expected SKIP, got %s", got.Status)
	}
	if got.ReasonCode == nil || *got.ReasonCode != "FORMAT_STRESS_MODELS_UNAVAILABLE" {
		t.Fatalf("expected FORMAT_STRESS_MODELS_UNAVAILABLE, got %v", got.ReasonCode)
	}
}

func TestRunPrecedenceOverrideWins(t *testing.T) {
	got := Run(sampleModels(), true, "commander", Selection{ProfileID: "focused", BracketID: "B2", RequestOverrideModelID: "identity"})
	if got.SelectedModelID != "identity" || got.SelectionSource != "request_override" {
		t.Fatalf("got model=%s source=%s, want identity/request_override", got.SelectedModelID, got.SelectionSource)
	}
}

func TestRunPrecedenceByProfileBracketBeatsByProfile(t *testing.T) {
	got := Run(sampleModels(), true, "commander", Selection{ProfileID: "focused", BracketID: "B2"})
	if got.SelectedModelID != "combo_model" || got.SelectionSource != "by_profile_bracket" {
		t.Fatalf("got model=%s source=%s, want combo_model/by_profile_bracket", got.SelectedModelID, got.SelectionSource)
	}
}

func TestRunPrecedenceByProfileBeatsByBracket(t *testing.T) {
	got := Run(sampleModels(), true, "commander", Selection{ProfileID: "focused", BracketID: "other"})
	if got.SelectedModelID != "focused_model" || got.SelectionSource != "by_profile_id" {
		t.Fatalf("got model=%s source=%s, want focused_model/by_profile_id", got.SelectedModelID, got.SelectionSource)
	}
}

func TestRunFallsBackToDefault(t *testing.T) {
	got := Run(sampleModels(), true, "commander", Selection{})
	if got.SelectedModelID != "identity" || got.SelectionSource != "default_model_id" {
		t.Fatalf("got model=%s source=%s, want identity/default_model_id", got.SelectedModelID, got.SelectionSource)
	}
}

func TestRunUnknownOverrideWarnsAndFallsThrough(t *testing.T) {
	got := Run(sampleModels(), true, "commander", Selection{RequestOverrideModelID: "nonexistent"})
	if got.Status != model.StatusWarn {
		t.Fatalf("expected WARN, got %s", got.Status)
	}
	found := false
	for _, c := range got.Codes {
		if c == "STRESS_MODEL_OVERRIDE_UNKNOWN" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected STRESS_MODEL_OVERRIDE_UNKNOWN, got %v", got.Codes)
	}
	if got.SelectedModelID != "identity" {
		t.Fatalf("expected fallback to default identity, got %s", got.SelectedModelID)
	}
}

func TestOperatorsReturnsCanonicalOrder(t *testing.T) {
	models := sampleModels()
	row := models.FormatDefaults["commander"]
	row.Models["mixed"] = packs.StressModel{
		ModelID: "mixed",
		Operators: []packs.Operator{
			{Op: packs.OpTargetedRemoval, Count: 5},
			{Op: packs.OpBoardWipe, ByTurnWipe: 1, SurvivingEngineFraction: 0.1},
			{Op: packs.OpTargetedRemoval, Count: 1},
		},
	}
	models.FormatDefaults["commander"] = row

	ops, ok := Operators(models, "commander", "mixed")
	if !ok {
		t.Fatal("expected Operators to resolve")
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operators, got %d", len(ops))
	}
	if ops[0].Op != packs.OpBoardWipe {
		t.Fatalf("expected BOARD_WIPE first in canonical order, got %v", ops[0])
	}
	if ops[1].Count != 1 || ops[2].Count != 5 {
		t.Fatalf("expected TARGETED_REMOVAL ops ascending by count, got %v then %v", ops[1], ops[2])
	}
}
