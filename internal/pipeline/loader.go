package pipeline

import (
	"path/filepath"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/combopack"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
)

// LoadPacks loads every data pack named in spec.md §6 from dataRoot, each
// independently: a missing or invalid pack only disables that pack's *OK
// flag (the consuming layer SKIPs), it never aborts loading the rest. The
// curated pack manifest's hash check, when manifestPath is non-empty, is
// the one exception — a mismatch there is a hard error per spec.md §6.
func LoadPacks(dataRoot, manifestPath string) (Packs, error) {
	var p Packs

	if manifestPath != "" {
		manifest, err := packs.LoadManifest(manifestPath)
		if err == nil {
			if err := packs.ValidateHashes(filepath.Dir(manifestPath), manifest); err != nil {
				return Packs{}, err
			}
		}
	}

	if sigs, err := packs.LoadDependencySignatures(filepath.Join(dataRoot, "dependency_signatures_v1.json")); err == nil {
		p.DependencySignatures, p.DependencySignaturesOK = sigs, true
	}
	if mul, err := packs.LoadMulliganAssumptions(filepath.Join(dataRoot, "mulligan_assumptions_v1.json")); err == nil {
		p.MulliganAssumptions, p.MulliganAssumptionsOK = mul, true
	}
	if subs, err := packs.LoadBucketSubstitutions(filepath.Join(dataRoot, "bucket_substitutions_v1.json")); err == nil {
		p.BucketSubstitutions, p.BucketSubstitutionsOK = subs, true
	}
	if rules, err := packs.LoadWeightRules(filepath.Join(dataRoot, "weight_rules_v1.json")); err == nil {
		p.WeightRules, p.WeightRulesOK = rules, true
	}
	if models, err := packs.LoadStressModels(filepath.Join(dataRoot, "stress_models_v1.json")); err == nil {
		p.StressModels, p.StressModelsOK = models, true
	}
	if thresholds, err := packs.LoadProfileThresholds(filepath.Join(dataRoot, "profile_thresholds_v1.json")); err == nil {
		p.ProfileThresholds, p.ProfileThresholdsOK = thresholds, true
	}

	variants, err := packs.LoadCommanderSpellbookVariants(filepath.Join(dataRoot, "commander_spellbook_variants_v1.json"))
	p.ComboPack.Variants, p.ComboPack.VariantsOK = variants, err == nil

	combos, sourceVersion, ok := combopack.LoadCombos(
		filepath.Join(dataRoot, "two_card_combos_v2.json"),
		filepath.Join(dataRoot, "two_card_combos_v1.json"),
	)
	p.ComboPack.Combos, p.ComboPack.ComboSourceVersion, p.ComboPack.CombosOK = combos, sourceVersion, ok

	return p, nil
}
