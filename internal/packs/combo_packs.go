package packs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrPackMissing marks a load failure caused by the pack file not existing,
// distinct from a malformed or wrong-version pack. ComboPack's loader uses
// this to trigger the single documented two_card_combos_v2 -> v1 fallback
// (spec.md §7's "no silent fallback other than" exception).
var ErrPackMissing = errors.New("PACK_FILE_MISSING")

// CommanderSpellbookVariantsVersion is the expected version tag for the pack.
const CommanderSpellbookVariantsVersion = "commander_spellbook_variants_v1"

// TwoCardCombosV2Version and TwoCardCombosV1Version are the expected
// version tags for the primary and legacy-fallback combo packs.
const (
	TwoCardCombosV2Version = "two_card_combos_v2"
	TwoCardCombosV1Version = "two_card_combos_v1"
)

// SpellbookVariant is one named combo-variant row: the sorted card keys
// that make it up.
type SpellbookVariant struct {
	VariantID string
	CardKeys  []string
}

// CommanderSpellbookVariants is the full loaded pack, ordered by variant id.
type CommanderSpellbookVariants struct {
	Version  string
	Variants []SpellbookVariant
}

// LoadCommanderSpellbookVariants reads and validates a
// commander_spellbook_variants_v1 pack file.
func LoadCommanderSpellbookVariants(p string) (CommanderSpellbookVariants, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return CommanderSpellbookVariants{}, fmt.Errorf("COMMANDER_SPELLBOOK_VARIANTS_V1_MISSING: %w", err)
	}

	var doc struct {
		Version  string `json:"version"`
		Variants map[string]struct {
			CardKeys []string `json:"card_keys"`
		} `json:"variants"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return CommanderSpellbookVariants{}, fmt.Errorf("COMMANDER_SPELLBOOK_VARIANTS_V1_INVALID_JSON: %w", err)
	}
	if doc.Version != CommanderSpellbookVariantsVersion {
		return CommanderSpellbookVariants{}, fmt.Errorf("COMMANDER_SPELLBOOK_VARIANTS_V1_INVALID: version must equal %q", CommanderSpellbookVariantsVersion)
	}

	ids := make([]string, 0, len(doc.Variants))
	for id := range doc.Variants {
		if id == "" {
			return CommanderSpellbookVariants{}, fmt.Errorf("COMMANDER_SPELLBOOK_VARIANTS_V1_INVALID: variant id must be non-empty")
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := CommanderSpellbookVariants{Version: doc.Version, Variants: make([]SpellbookVariant, 0, len(ids))}
	for _, id := range ids {
		keys := append([]string(nil), doc.Variants[id].CardKeys...)
		sort.Strings(keys)
		out.Variants = append(out.Variants, SpellbookVariant{VariantID: id, CardKeys: keys})
	}
	return out, nil
}

// TwoCardCombo is one unordered pair-of-card-keys row with the spellbook
// variant ids that realize it, sorted ascending.
type TwoCardCombo struct {
	CardKeyA   string
	CardKeyB   string
	VariantIDs []string
}

// TwoCardCombos is one loaded two_card_combos pack (either version).
type TwoCardCombos struct {
	Version string
	Combos  []TwoCardCombo
}

// LoadTwoCardCombos reads and validates a two_card_combos pack file at path
// p, expecting exactly expectedVersion as its version tag.
func LoadTwoCardCombos(p, expectedVersion string) (TwoCardCombos, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TwoCardCombos{}, fmt.Errorf("%w: %s_MISSING: %s", ErrPackMissing, tag(expectedVersion), p)
		}
		return TwoCardCombos{}, fmt.Errorf("%s_MISSING: %w", tag(expectedVersion), err)
	}

	var doc struct {
		Version string `json:"version"`
		Combos  []struct {
			CardKeyA   string   `json:"card_key_a"`
			CardKeyB   string   `json:"card_key_b"`
			VariantIDs []string `json:"variant_ids"`
		} `json:"combos"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return TwoCardCombos{}, fmt.Errorf("%s_INVALID_JSON: %w", tag(expectedVersion), err)
	}
	if doc.Version != expectedVersion {
		return TwoCardCombos{}, fmt.Errorf("%s_INVALID: version must equal %q", tag(expectedVersion), expectedVersion)
	}

	out := TwoCardCombos{Version: doc.Version}
	for _, c := range doc.Combos {
		if c.CardKeyA == "" || c.CardKeyB == "" {
			return TwoCardCombos{}, fmt.Errorf("%s_INVALID: combo card keys must be non-empty", tag(expectedVersion))
		}
		a, b := c.CardKeyA, c.CardKeyB
		if a > b {
			a, b = b, a
		}
		variantIDs := append([]string(nil), c.VariantIDs...)
		sort.Strings(variantIDs)
		out.Combos = append(out.Combos, TwoCardCombo{CardKeyA: a, CardKeyB: b, VariantIDs: variantIDs})
	}
	sort.Slice(out.Combos, func(i, j int) bool {
		if out.Combos[i].CardKeyA != out.Combos[j].CardKeyA {
			return out.Combos[i].CardKeyA < out.Combos[j].CardKeyA
		}
		return out.Combos[i].CardKeyB < out.Combos[j].CardKeyB
	})
	return out, nil
}

func tag(version string) string {
	out := make([]byte, 0, len(version))
	for _, c := range version {
		if c >= 'a' && c <= 'z' {
			out = append(out, byte(c-'a'+'A'))
		} else {
			out = append(out, byte(c))
		}
	}
	return string(out)
}
