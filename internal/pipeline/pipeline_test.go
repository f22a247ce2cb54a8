package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/probcore"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
)

// jsonRoundTrip marshals v to JSON and unmarshals it back into a plain map,
// mirroring how a consumer reading build_hash_v1's canonical JSON sees a
// layer payload (numeric map keys as strings, structs as objects).
func jsonRoundTrip(v interface{}) (map[string]interface{}, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// allBasicLandsIndex returns a 99-slot primitive index tagged BASIC_LAND
// with no RAMP/REMOVAL buckets present, per spec.md §8 S1.
func allBasicLandsIndex() *model.PrimitiveIndex {
	slots := make([]string, 0, 99)
	prims := make(map[string][]string, 99)
	for i := 0; i < 99; i++ {
		id := "slot" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		slots = append(slots, id)
		prims[id] = []string{"BASIC_LAND"}
	}
	return &model.PrimitiveIndex{PrimitivesBySlot: prims, PlayableSlotIDs: slots}
}

// rampIndex returns allBasicLandsIndex plus exactly rampCount slots tagged
// RAMP (relabeling basic-land slots), so the RAMP bucket's K_primary equals
// rampCount while the deck still totals 99 playable slots.
func rampIndex(rampCount int) *model.PrimitiveIndex {
	idx := allBasicLandsIndex()
	i := 0
	for _, slot := range idx.PlayableSlotIDs {
		if i >= rampCount {
			break
		}
		idx.PrimitivesBySlot[slot] = []string{"RAMP"}
		i++
	}
	return idx
}

func minimalSubstitutions() packs.BucketSubstitutions {
	return packs.BucketSubstitutions{
		Version: packs.BucketSubstitutionsVersion,
		Buckets: []packs.BucketSubstitutionRule{
			{BucketID: "RAMP", PrimaryPrimitives: []string{"RAMP"}},
		},
	}
}

func minimalMulliganAssumptions() packs.MulliganAssumptions {
	checkpoints := map[int]float64{7: 7, 9: 9, 10: 10, 12: 12}
	return packs.MulliganAssumptions{
		Version: packs.MulliganAssumptionsVersion,
		FormatDefaults: map[string]packs.FormatMulliganDefaults{
			"commander": {
				DefaultPolicy: "NORMAL",
				Policies: map[string]map[int]float64{
					"NORMAL":          checkpoints,
					"FRIENDLY":        checkpoints,
					"DRAW10_SHUFFLE3": checkpoints,
				},
			},
		},
	}
}

func minimalStressModels() packs.StressModels {
	return packs.StressModels{
		FormatDefaults: map[string]packs.FormatStressModels{
			"commander": {
				Selection: packs.StressSelection{DefaultModelID: "identity"},
				Models:    map[string]packs.StressModel{"identity": {ModelID: "identity"}},
			},
		},
	}
}

func basePacks() Packs {
	return Packs{
		BucketSubstitutions:   minimalSubstitutions(),
		BucketSubstitutionsOK: true,
		MulliganAssumptions:   minimalMulliganAssumptions(),
		MulliganAssumptionsOK: true,
		StressModels:          minimalStressModels(),
		StressModelsOK:        true,
	}
}

func baseRequest(idx *model.PrimitiveIndex) Request {
	return Request{FormatID: "commander", ProfileID: "focused", BracketID: "B2", Index: idx}
}

func TestRunS1TrivialOK(t *testing.T) {
	result, err := Run(baseRequest(allBasicLandsIndex()), basePacks())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	coh := layerRaw(t, result, "coherence")
	if coh["status"] != "OK" {
		t.Fatalf("expected coherence OK, got %v", coh["status"])
	}
	if coh["primitive_concentration_index"].(float64) != 1.0 {
		t.Fatalf("expected primitive_concentration_index=1.0, got %v", coh["primitive_concentration_index"])
	}
	if coh["overlap_score"].(float64) != 1.0 {
		t.Fatalf("expected overlap_score=1.0, got %v", coh["overlap_score"])
	}

	sub := layerRaw(t, result, "substitution_engine")
	if sub["buckets"] == nil {
		t.Fatal("expected buckets in substitution_engine layer")
	}

	cp := layerRaw(t, result, "probability_checkpoint")
	if cp["status"] != "OK" {
		t.Fatalf("expected probability_checkpoint OK, got %v", cp["status"])
	}
	buckets, ok := cp["buckets"].([]interface{})
	if !ok || len(buckets) != 1 {
		t.Fatalf("expected exactly one checkpoint bucket, got %v", cp["buckets"])
	}
	bucket, _ := buckets[0].(map[string]interface{})
	pMap, _ := bucket["p_ge_1_by_checkpoint"].(map[string]interface{})
	for _, v := range pMap {
		if v.(float64) != 0.0 {
			t.Fatalf("expected p_ge_1=0 for all checkpoints with K_primary=0, got %v", pMap)
		}
	}

	sm := layerRaw(t, result, "stress_model_definition")
	if sm["selection_source"] != "default_model_id" {
		t.Fatalf("expected StressModelDefinition to select the default model, got %v", sm["selection_source"])
	}

	st := layerRaw(t, result, "stress_transform")
	stBuckets := st["buckets"].([]interface{})
	stBucket := stBuckets[0].(map[string]interface{})
	stPMap := stBucket["p_ge_1_by_checkpoint"].(map[string]interface{})
	for _, v := range stPMap {
		if v.(float64) != 0.0 {
			t.Fatalf("expected all stress-adjusted deltas to stay 0, got %v", stPMap)
		}
	}
}

// layerRaw JSON round-trips a layer payload into a plain map for assertions
// that don't need the concrete Go struct, mirroring how a consumer reading
// build_hash_v1's canonical JSON would see it.
func layerRaw(t *testing.T, result BuildResult, name string) map[string]interface{} {
	t.Helper()
	raw, ok := result.Result.Layers[name]
	if !ok {
		t.Fatalf("layer %s not present", name)
	}
	encoded, err := jsonRoundTrip(raw)
	if err != nil {
		t.Fatalf("round-trip layer %s: %v", name, err)
	}
	return encoded
}

func TestRunS1FailsBaselineProbWithThresholds(t *testing.T) {
	p := basePacks()
	p.ProfileThresholds = packs.ProfileThresholdsPack{
		Version:                    packs.ProfileThresholdsVersion,
		CalibrationSnapshotVersion: "calibration_snapshot_v1",
		DefaultProfileID:           "focused",
		Profiles: map[string]map[string]packs.DomainThresholds{
			"focused": {
				"required_effects": {},
				"baseline_prob":    {MinCastReliability: float64Ptr(0.5)},
				"stress_prob":      {},
				"coherence":        {},
				"resilience":       {},
				"commander":        {},
			},
		},
	}
	p.ProfileThresholdsOK = true

	result, err := Run(baseRequest(allBasicLandsIndex()), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != model.VerdictFail {
		t.Fatalf("expected aggregate FAIL (cast_reliability below min), got %s", result.Status)
	}
}

func TestRunS2IdentityStress(t *testing.T) {
	idx := rampIndex(30)
	p := basePacks()
	result, err := Run(baseRequest(idx), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	cp := layerRaw(t, result, "probability_checkpoint")
	buckets := cp["buckets"].([]interface{})
	bucket := buckets[0].(map[string]interface{})
	if int(bucket["k_int"].(float64)) != 30 {
		t.Fatalf("expected k_int=30, got %v", bucket["k_int"])
	}
	pMap := bucket["p_ge_1_by_checkpoint"].(map[string]interface{})
	got := pMap["7"].(float64)

	want, err := probcore.HypergeomPGe1(model.DeckSize, 30, 7)
	if err != nil {
		t.Fatalf("reference HypergeomPGe1: %v", err)
	}
	want = roundutil.Half6(want)
	if got != want {
		t.Fatalf("p_ge_1 at checkpoint 7 = %v, want %v (1 - C(69,7)/C(99,7) rounded)", got, want)
	}

	st := layerRaw(t, result, "stress_transform")
	stBuckets := st["buckets"].([]interface{})
	stBucket := stBuckets[0].(map[string]interface{})
	stPMap := stBucket["p_ge_1_by_checkpoint"].(map[string]interface{})
	if stPMap["7"].(float64) != got {
		t.Fatalf("expected identity stress to leave p_ge_1 unchanged, baseline=%v stressed=%v", got, stPMap["7"])
	}

	res := layerRaw(t, result, "resilience_math")
	if res["engine_continuity_after_removal"].(float64) != 1.0 {
		t.Fatalf("expected engine_continuity_after_removal=1.0 for identity stress, got %v", res["engine_continuity_after_removal"])
	}
}

func TestRunS3PureWipe(t *testing.T) {
	idx := rampIndex(20)
	p := basePacks()
	p.StressModels = packs.StressModels{
		FormatDefaults: map[string]packs.FormatStressModels{
			"commander": {
				Selection: packs.StressSelection{DefaultModelID: "pure_wipe"},
				Models: map[string]packs.StressModel{
					"pure_wipe": {
						ModelID: "pure_wipe",
						Operators: []packs.Operator{
							{Op: packs.OpBoardWipe, SurvivingEngineFraction: 0.5},
						},
					},
				},
			},
		},
	}
	p.StressModelsOK = true

	result, err := Run(baseRequest(idx), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	st := layerRaw(t, result, "stress_transform")
	buckets := st["buckets"].([]interface{})
	bucket := buckets[0].(map[string]interface{})
	if bucket["effective_k"].(float64) != 10.0 {
		t.Fatalf("effective_k after wipe = %v, want 10.0", bucket["effective_k"])
	}
	if int(bucket["k_int"].(float64)) != 10 {
		t.Fatalf("k_int after wipe = %v, want 10", bucket["k_int"])
	}

	want, err := probcore.HypergeomPGe1(model.DeckSize, 10, 7)
	if err != nil {
		t.Fatalf("reference HypergeomPGe1: %v", err)
	}
	want = roundutil.Half6(want)
	pMap := bucket["p_ge_1_by_checkpoint"].(map[string]interface{})
	if pMap["7"].(float64) != want {
		t.Fatalf("p_ge_1 at checkpoint 7 after wipe = %v, want %v (1 - C(89,7)/C(99,7) rounded)", pMap["7"], want)
	}
}

func TestRunS4OverrideUnknown(t *testing.T) {
	idx := rampIndex(10)
	p := basePacks()
	p.StressModels = packs.StressModels{
		FormatDefaults: map[string]packs.FormatStressModels{
			"commander": {
				Selection: packs.StressSelection{DefaultModelID: "identity"},
				Models: map[string]packs.StressModel{
					"identity": {ModelID: "identity"},
				},
			},
		},
	}
	p.StressModelsOK = true

	req := baseRequest(idx)
	req.RequestOverrideModelID = "does_not_exist"
	result, err := Run(req, p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	sm := layerRaw(t, result, "stress_model_definition")
	codes, _ := sm["codes"].([]interface{})
	found := false
	for _, c := range codes {
		if c == "STRESS_MODEL_OVERRIDE_UNKNOWN" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected STRESS_MODEL_OVERRIDE_UNKNOWN, got codes=%v", codes)
	}
	if sm["selected_model_id"] != "identity" {
		t.Fatalf("expected fallback to default_model_id identity, got %v", sm["selected_model_id"])
	}
}

func TestRunS5MissingPrimitiveIndex(t *testing.T) {
	result, err := Run(baseRequest(nil), basePacks())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	req := layerRaw(t, result, "requirement_detection")
	if req["status"] != "SKIP" || req["reason_code"] != "PRIMITIVE_INDEX_UNAVAILABLE" {
		t.Fatalf("expected requirement_detection SKIP/PRIMITIVE_INDEX_UNAVAILABLE, got %v/%v", req["status"], req["reason_code"])
	}

	coh := layerRaw(t, result, "coherence")
	if coh["status"] != "SKIP" {
		t.Fatalf("expected coherence SKIP, got %v", coh["status"])
	}

	sub := layerRaw(t, result, "substitution_engine")
	if sub["status"] != "SKIP" {
		t.Fatalf("expected substitution_engine SKIP, got %v", sub["status"])
	}

	suf := layerRaw(t, result, "sufficiency_summary")
	if suf["status"] != "SKIP" || suf["reason_code"] != "UPSTREAM_PHASE3_UNAVAILABLE" {
		t.Fatalf("expected sufficiency_summary SKIP/UPSTREAM_PHASE3_UNAVAILABLE, got %v/%v", suf["status"], suf["reason_code"])
	}
	if result.Status != model.VerdictSkip {
		t.Fatalf("expected aggregate status SKIP, got %s", result.Status)
	}
}

func TestRunS6LowCommanderForcesFragilityDeltasZero(t *testing.T) {
	idx := rampIndex(10)
	idx.CommanderSlotID = idx.PlayableSlotIDs[0]
	idx.PrimitivesBySlot[idx.CommanderSlotID] = []string{"VANILLA_COMMANDER"}

	p := basePacks()
	p.DependencySignaturesOK = true
	p.DependencySignatures = packs.DependencySignatures{Signatures: []packs.DependencySignature{
		{Name: "COMMANDER_DEPENDENT_LOW", AnyRequiredPrimitives: []string{"VANILLA_COMMANDER"}},
	}}

	result, err := Run(baseRequest(idx), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	reqLayer := layerRaw(t, result, "requirement_detection")
	if reqLayer["commander_dependent"] != "LOW" {
		t.Fatalf("expected commander_dependent=LOW, got %v", reqLayer["commander_dependent"])
	}

	res := layerRaw(t, result, "resilience_math")
	if res["commander_fragility_delta"].(float64) != 0.0 {
		t.Fatalf("expected resilience commander_fragility_delta=0.0 for LOW, got %v", res["commander_fragility_delta"])
	}

	cmd := layerRaw(t, result, "commander_reliability")
	if cmd["commander_fragility_delta"].(float64) != 0.0 {
		t.Fatalf("expected commander_reliability commander_fragility_delta=0.0 for LOW, got %v", cmd["commander_fragility_delta"])
	}
}

func TestRunIsDeterministic(t *testing.T) {
	req := baseRequest(rampIndex(15))
	p := basePacks()

	first, err := Run(req, p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	second, err := Run(req, p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Run is not deterministic across identical inputs:\n%s", diff)
	}
	if first.BuildHashV1 != second.BuildHashV1 {
		t.Fatalf("build_hash_v1 differs across identical inputs: %s vs %s", first.BuildHashV1, second.BuildHashV1)
	}
}

func TestRunEmptyOperatorListReproducesBaselineExactly(t *testing.T) {
	idx := rampIndex(12)
	p := basePacks()
	p.StressModels = packs.StressModels{
		FormatDefaults: map[string]packs.FormatStressModels{
			"commander": {
				Selection: packs.StressSelection{DefaultModelID: "identity"},
				Models:    map[string]packs.StressModel{"identity": {ModelID: "identity"}},
			},
		},
	}
	p.StressModelsOK = true

	result, err := Run(baseRequest(idx), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	cp := layerRaw(t, result, "probability_checkpoint")
	st := layerRaw(t, result, "stress_transform")

	cpBucket := cp["buckets"].([]interface{})[0].(map[string]interface{})
	stBucket := st["buckets"].([]interface{})[0].(map[string]interface{})
	if diff := cmp.Diff(cpBucket["p_ge_1_by_checkpoint"], stBucket["p_ge_1_by_checkpoint"]); diff != "" {
		t.Fatalf("empty-operator stress transform did not reproduce baseline exactly:\n%s", diff)
	}
}

func float64Ptr(v float64) *float64 { return &v }
