// Package combopack implements layer 13, ComboPack: a deterministic,
// strictly local-only lookup of two-card combo pairs present in a decklist,
// used by a bracket-enforcement collaborator outside this pipeline's scope.
// It loads commander_spellbook_variants_v1 and two_card_combos_v2, falling
// back to the legacy two_card_combos_v1 only when v2's file is missing —
// the single documented fallback path in the whole system. No network
// access and no combo-graph/oracle-text path are reachable from here.
package combopack

import (
	"errors"
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
)

// Version is the compiled version pin for this layer.
const Version = "combo_pack_v1"

// MaxMatches is the fixed bound on detect_two_card_combos's result size.
const MaxMatches = 25

// Match is one detected two-card combo pair, sorted lexicographically by
// (a, b).
type Match struct {
	A          string   `json:"a"`
	B          string   `json:"b"`
	VariantIDs []string `json:"variant_ids"`
}

// Payload is the layer-13 output.
type Payload struct {
	model.Base
	SourceVersion string  `json:"source_version"`
	Matches       []Match `json:"matches"`
}

// Loaded is the combo data this layer needs, already loaded by the caller
// (packs.LoadCommanderSpellbookVariants / packs.LoadTwoCardCombos).
type Loaded struct {
	Variants         packs.CommanderSpellbookVariants
	VariantsOK       bool
	Combos           packs.TwoCardCombos
	ComboSourceVersion string
	CombosOK         bool
}

// LoadCombos loads two_card_combos_v2 from v2Path, falling back to
// two_card_combos_v1 at v1Path only when the v2 file is missing.
func LoadCombos(v2Path, v1Path string) (packs.TwoCardCombos, string, bool) {
	combos, err := packs.LoadTwoCardCombos(v2Path, packs.TwoCardCombosV2Version)
	if err == nil {
		return combos, packs.TwoCardCombosV2Version, true
	}
	if !errors.Is(err, packs.ErrPackMissing) {
		return packs.TwoCardCombos{}, "", false
	}
	combos, err = packs.LoadTwoCardCombos(v1Path, packs.TwoCardCombosV1Version)
	if err != nil {
		return packs.TwoCardCombos{}, "", false
	}
	return combos, packs.TwoCardCombosV1Version, true
}

// Run builds the combo-pair index from the loaded packs. It does not by
// itself run detection against a decklist — see DetectTwoCardCombos.
func Run(loaded Loaded) Payload {
	if !loaded.CombosOK {
		reason := "TWO_CARD_COMBOS_UNAVAILABLE"
		return Payload{Base: model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}}}
	}

	var codes []string
	if !loaded.VariantsOK {
		codes = append(codes, "COMMANDER_SPELLBOOK_VARIANTS_UNAVAILABLE")
	}
	if loaded.ComboSourceVersion == packs.TwoCardCombosV1Version {
		codes = append(codes, "TWO_CARD_COMBOS_V2_UNAVAILABLE_USED_LEGACY_V1")
	}

	matches := make([]Match, 0, len(loaded.Combos.Combos))
	for _, c := range loaded.Combos.Combos {
		matches = append(matches, Match{A: c.CardKeyA, B: c.CardKeyB, VariantIDs: c.VariantIDs})
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	return Payload{
		Base:          model.Base{Version: Version, Status: status, Codes: model.SortedUniqueStrings(codes)},
		SourceVersion: loaded.ComboSourceVersion,
		Matches:       matches,
	}
}

// DetectTwoCardCombos returns the bounded, deterministic list of
// (a, b, variant_ids) combo matches present among deckCardKeys, sorted
// lexicographically by (a, b), truncated to maxMatches.
func DetectTwoCardCombos(p Payload, deckCardKeys []string, maxMatches int) ([]Match, bool) {
	if maxMatches <= 0 {
		maxMatches = MaxMatches
	}
	deckSet := make(map[string]struct{}, len(deckCardKeys))
	for _, key := range deckCardKeys {
		deckSet[key] = struct{}{}
	}

	var present []Match
	for _, m := range p.Matches {
		_, okA := deckSet[m.A]
		_, okB := deckSet[m.B]
		if okA && okB {
			present = append(present, m)
		}
	}
	sort.Slice(present, func(i, j int) bool {
		if present[i].A != present[j].A {
			return present[i].A < present[j].A
		}
		return present[i].B < present[j].B
	})

	truncated := len(present) > maxMatches
	if truncated {
		present = present[:maxMatches]
	}
	return present, truncated
}
