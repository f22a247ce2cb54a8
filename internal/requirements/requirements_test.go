package requirements

import (
	"testing"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
)

func TestRunSkipsWhenIndexNil(t *testing.T) {
	got := Run(nil, packs.DependencySignatures{})
	if got.Status != model.StatusSkip {
		t.Fatalf("expected SKIP, got %s", got.Status)
	}
	if got.ReasonCode == nil || *got.ReasonCode != "PRIMITIVE_INDEX_UNAVAILABLE" {
		t.Fatalf("expected PRIMITIVE_INDEX_UNAVAILABLE, got %v", got.ReasonCode)
	}
}

func sampleSignatures() packs.DependencySignatures {
	return packs.DependencySignatures{
		Signatures: []packs.DependencySignature{
			{Name: "HAS_RAMP_SUITE", AnyRequiredPrimitives: []string{"RAMP"}},
			{Name: "COMMANDER_DEPENDENT_HIGH", AnyRequiredPrimitives: []string{"HEXPROOF_COMMANDER"}},
			{Name: "COMMANDER_DEPENDENT_LOW", AnyRequiredPrimitives: []string{"VANILLA_COMMANDER"}},
		},
	}
}

func TestRunMatchesSignaturePresentOnAnyPlayableSlot(t *testing.T) {
	idx := &model.PrimitiveIndex{
		PrimitivesBySlot: map[string][]string{
			"s1":        {"RAMP"},
			"commander": {"VANILLA_COMMANDER"},
		},
		PlayableSlotIDs: []string{"s1", "commander"},
		CommanderSlotID: "commander",
	}
	got := Run(idx, sampleSignatures())
	if !got.EngineRequirements["HAS_RAMP_SUITE"] {
		t.Fatalf("expected HAS_RAMP_SUITE=true, got %v", got.EngineRequirements)
	}
}

func TestRunCommanderDependentPicksHighestPriorityClassFirst(t *testing.T) {
	idx := &model.PrimitiveIndex{
		PrimitivesBySlot: map[string][]string{
			"commander": {"HEXPROOF_COMMANDER"},
		},
		PlayableSlotIDs: []string{"commander"},
		CommanderSlotID: "commander",
	}
	got := Run(idx, sampleSignatures())
	if got.CommanderDependent != model.CommanderDependentHigh {
		t.Fatalf("commander_dependent = %s, want HIGH", got.CommanderDependent)
	}
}

func TestRunCommanderDependentDefaultsToLowWhenNoClassMatches(t *testing.T) {
	idx := &model.PrimitiveIndex{
		PrimitivesBySlot: map[string][]string{
			"commander": {"SOMETHING_ELSE"},
		},
		PlayableSlotIDs: []string{"commander"},
		CommanderSlotID: "commander",
	}
	got := Run(idx, sampleSignatures())
	if got.CommanderDependent != model.CommanderDependentLow {
		t.Fatalf("commander_dependent = %s, want LOW default", got.CommanderDependent)
	}
}

func TestRunCommanderSlotMissingFlagsCodeAndReturnsUnknown(t *testing.T) {
	idx := &model.PrimitiveIndex{
		PrimitivesBySlot: map[string][]string{"s1": {"RAMP"}},
		PlayableSlotIDs:   []string{"s1"},
	}
	got := Run(idx, sampleSignatures())
	if got.CommanderDependent != model.CommanderDependentUnknown {
		t.Fatalf("commander_dependent = %s, want UNKNOWN", got.CommanderDependent)
	}
	found := false
	for _, c := range got.Codes {
		if c == "COMMANDER_SLOT_ID_MISSING" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected COMMANDER_SLOT_ID_MISSING, got %v", got.Codes)
	}
	if got.Status != model.StatusWarn {
		t.Fatalf("expected WARN, got %s", got.Status)
	}
}

func TestRunUnknownPrimitiveInSignatureWarns(t *testing.T) {
	idx := &model.PrimitiveIndex{
		PrimitivesBySlot: map[string][]string{
			"commander": {"VANILLA_COMMANDER"},
		},
		PlayableSlotIDs: []string{"commander"},
		CommanderSlotID: "commander",
	}
	sigs := packs.DependencySignatures{Signatures: []packs.DependencySignature{
		{Name: "HAS_MYSTERY_CARD", AnyRequiredPrimitives: []string{"NEVER_SEEN_PRIMITIVE"}},
	}}
	got := Run(idx, sigs)
	if got.Status != model.StatusWarn {
		t.Fatalf("expected WARN, got %s", got.Status)
	}
	found := false
	for _, c := range got.Codes {
		if c == "UNKNOWN_PRIMITIVE_ID_IN_SIGNATURES" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UNKNOWN_PRIMITIVE_ID_IN_SIGNATURES, got %v", got.Codes)
	}
}
