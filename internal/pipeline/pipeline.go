// Package pipeline is the driver that runs the thirteen-layer sufficiency
// pipeline in dependency order, assembles the BuildResult, and computes the
// content-addressed build_hash_v1 over its canonical JSON serialization.
// Layers run strictly sequentially; each reads only a frozen snapshot of
// already-computed layer payloads and the immutable, already-loaded data
// packs — there is no intra-pipeline parallelism to reorder.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/checkpoint"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/coherence"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/combopack"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/commanderreliability"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/mulligan"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/requirements"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/resilience"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/stressmodel"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/stresstransform"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/substitution"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/sufficiency"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/weightmult"
)

// EngineVersion and RulesetVersion are the pipeline's own version pins,
// bumped whenever a layer's compiled semantics change (spec.md §9: adding
// an operator or changing layer semantics is a breaking, version-bumping
// change).
const (
	EngineVersion  = "sufficiency-engine-1"
	RulesetVersion = "sufficiency-ruleset-1"
)

// Packs bundles every data pack the pipeline loads once at startup into
// immutable in-memory structures shared by read-only reference across all
// layers for the lifetime of one run.
type Packs struct {
	DependencySignatures packs.DependencySignatures
	DependencySignaturesOK bool

	MulliganAssumptions packs.MulliganAssumptions
	MulliganAssumptionsOK bool

	BucketSubstitutions packs.BucketSubstitutions
	BucketSubstitutionsOK bool

	WeightRules packs.WeightRules
	WeightRulesOK bool

	StressModels packs.StressModels
	StressModelsOK bool

	ProfileThresholds packs.ProfileThresholdsPack
	ProfileThresholdsOK bool

	ComboPack combopack.Loaded
}

// Request carries the runtime-recognized selection inputs: profile id,
// bracket id, format identifier, optional stress-model override, and the
// primitive index (optional commander slot id lives inside it). No other
// input may alter numeric output.
type Request struct {
	FormatID               string
	ProfileID              string
	BracketID              string
	RequestOverrideModelID string
	Index                  *model.PrimitiveIndex
	DBSnapshotID           string
}

// BuildResult is the pipeline's top-level output: stable schema,
// additive-only, per spec.md §6.
type BuildResult struct {
	EngineVersion    string                 `json:"engine_version"`
	RulesetVersion   string                 `json:"ruleset_version"`
	DBSnapshotID     string                 `json:"db_snapshot_id"`
	ProfileID        string                 `json:"profile_id"`
	BracketID        string                 `json:"bracket_id"`
	Status           model.Verdict          `json:"status"`
	BuildHashV1       string                 `json:"build_hash_v1"`
	Unknowns          []string               `json:"unknowns"`
	Result            Result                 `json:"result"`
}

// Result is the result{} sub-object: the available-panels gate, the
// per-layer version pins, and every layer's payload keyed by layer name.
type Result struct {
	AvailablePanelsV1 map[string]bool        `json:"available_panels_v1"`
	PipelineVersions  map[string]string      `json:"pipeline_versions"`
	Layers            map[string]interface{} `json:"layers"`
}

// layerNames is the fixed, closed set of layer names in §2's dependency
// order, used to build pipeline_versions and available_panels_v1
// deterministically regardless of map iteration order.
var layerNames = []string{
	"requirement_detection",
	"coherence",
	"mulligan_model",
	"substitution_engine",
	"weight_multiplier",
	"probability_checkpoint",
	"stress_model_definition",
	"stress_transform",
	"resilience_math",
	"commander_reliability",
	"sufficiency_summary",
	"combo_pack",
}

// Run executes all thirteen layers in dependency order and assembles the
// BuildResult, including the content-addressed build_hash_v1.
func Run(req Request, p Packs) (BuildResult, error) {
	layers := make(map[string]interface{}, len(layerNames))
	versions := make(map[string]string, len(layerNames))
	panels := make(map[string]bool, len(layerNames))
	var unknowns []string

	reqPayload := requirements.Run(req.Index, p.DependencySignatures)
	layers["requirement_detection"] = reqPayload
	versions["requirement_detection_version"] = requirements.Version
	panels["requirement_detection"] = reqPayload.Base.Ready()

	cohPayload := coherence.Run(req.Index)
	layers["coherence"] = cohPayload
	versions["coherence_version"] = coherence.Version
	panels["coherence"] = cohPayload.Base.Ready()

	mulPayload := mulligan.Run(p.MulliganAssumptions, p.MulliganAssumptionsOK, req.FormatID)
	layers["mulligan_model"] = mulPayload
	versions["mulligan_model_version"] = mulligan.Version
	panels["mulligan_model"] = mulPayload.Base.Ready()

	var requirementsMap map[string]bool
	requirementsAvailable := reqPayload.Base.Ready()
	if requirementsAvailable {
		requirementsMap = reqPayload.EngineRequirements
	}

	subPayload := substitution.Run(req.Index, p.BucketSubstitutions, requirementsMap, requirementsAvailable)
	layers["substitution_engine"] = subPayload
	versions["substitution_engine_version"] = substitution.Version
	panels["substitution_engine"] = subPayload.Base.Ready()

	bucketIDs := make([]string, 0, len(subPayload.Buckets))
	for _, b := range subPayload.Buckets {
		bucketIDs = append(bucketIDs, b.BucketID)
	}
	sort.Strings(bucketIDs)

	weightPayload := weightmult.Run(p.WeightRules, bucketIDs, requirementsMap, requirementsAvailable)
	layers["weight_multiplier"] = weightPayload
	versions["weight_multiplier_version"] = weightmult.Version
	panels["weight_multiplier"] = weightPayload.Base.Ready()

	defaultPolicy, defaultCheckpoints, mulliganReady := "", map[int]float64(nil), false
	if checkpoints, ok := mulligan.DefaultPolicyCheckpoints(mulPayload); ok {
		defaultPolicy, defaultCheckpoints, mulliganReady = mulPayload.DefaultPolicy, checkpoints, true
	}

	cpPayload, err := checkpoint.Run(subPayload, weightPayload, defaultPolicy, defaultCheckpoints, mulliganReady)
	if err != nil {
		return BuildResult{}, fmt.Errorf("probability_checkpoint: %w", err)
	}
	layers["probability_checkpoint"] = cpPayload
	versions["probability_checkpoint_version"] = checkpoint.Version
	panels["probability_checkpoint"] = cpPayload.Base.Ready()

	smSel := stressmodel.Selection{ProfileID: req.ProfileID, BracketID: req.BracketID, RequestOverrideModelID: req.RequestOverrideModelID}
	smPayload := stressmodel.Run(p.StressModels, p.StressModelsOK, req.FormatID, smSel)
	layers["stress_model_definition"] = smPayload
	versions["stress_model_definition_version"] = stressmodel.Version
	panels["stress_model_definition"] = smPayload.Base.Ready()

	var operators []packs.Operator
	if smPayload.Base.Ready() {
		operators, _ = stressmodel.Operators(p.StressModels, req.FormatID, smPayload.SelectedModelID)
	}

	stPayload, err := stresstransform.Run(smPayload, cpPayload, operators, cpPayload.NIntByCheckpoint)
	if err != nil {
		return BuildResult{}, fmt.Errorf("stress_transform: %w", err)
	}
	layers["stress_transform"] = stPayload
	versions["stress_transform_version"] = stresstransform.Version
	panels["stress_transform"] = stPayload.Base.Ready()

	resPayload, err := resilience.Run(cpPayload, stPayload, reqPayload.CommanderDependent, requirementsAvailable)
	if err != nil {
		if resilience.IsAlignmentError(err) {
			reason := "RESILIENCE_BUCKET_ALIGNMENT_INVALID"
			resPayload = resilience.Payload{Base: model.Base{Version: resilience.Version, Status: model.StatusError, ReasonCode: &reason, Codes: []string{}}}
		} else {
			return BuildResult{}, fmt.Errorf("resilience_math: %w", err)
		}
	}
	layers["resilience_math"] = resPayload
	versions["resilience_math_version"] = resilience.Version
	panels["resilience_math"] = resPayload.Base.Ready()

	cmdPayload := commanderreliability.Run(req.Index, cpPayload, stPayload, reqPayload.CommanderDependent, requirementsAvailable)
	layers["commander_reliability"] = cmdPayload
	versions["commander_reliability_version"] = commanderreliability.Version
	panels["commander_reliability"] = cmdPayload.Base.Ready()

	thresholds, thresholdsOK := packs.ProfileThresholds{}, false
	if p.ProfileThresholdsOK {
		thresholds, thresholdsOK = packs.Resolve(p.ProfileThresholds, req.ProfileID)
	}
	sufPayload := sufficiency.Run(sufficiency.Upstream{
		Requirements: reqPayload,
		Coherence:    cohPayload,
		Resilience:   resPayload,
		Commander:    cmdPayload,
	}, thresholds, thresholdsOK)
	layers["sufficiency_summary"] = sufPayload
	versions["sufficiency_summary_version"] = sufficiency.Version
	panels["sufficiency_summary"] = sufPayload.Base.Ready()

	comboPayload := combopack.Run(p.ComboPack)
	layers["combo_pack"] = comboPayload
	versions["combo_pack_version"] = combopack.Version
	panels["combo_pack"] = comboPayload.Base.Ready()

	if unknowns == nil {
		unknowns = []string{}
	}

	result := Result{
		AvailablePanelsV1: panels,
		PipelineVersions:  versions,
		Layers:            layers,
	}

	hash, err := BuildHashV1(versions, layers)
	if err != nil {
		return BuildResult{}, fmt.Errorf("build_hash_v1: %w", err)
	}

	return BuildResult{
		EngineVersion:  EngineVersion,
		RulesetVersion: RulesetVersion,
		DBSnapshotID:   req.DBSnapshotID,
		ProfileID:      req.ProfileID,
		BracketID:      req.BracketID,
		Status:         sufPayload.AggregateStatus,
		BuildHashV1:    hash,
		Unknowns:       unknowns,
		Result:         result,
	}, nil
}

// BuildHashV1 computes the deterministic SHA-256 digest over the canonical
// JSON serialization of the sorted layer payloads plus pipeline version
// pins, encoded as lowercase hex. encoding/json already serializes map
// keys in sorted order and struct fields in declaration order, which
// satisfies the canonical-JSON requirement without a dedicated
// canonicalization library.
func BuildHashV1(versions map[string]string, layers map[string]interface{}) (string, error) {
	payload := struct {
		PipelineVersions map[string]string      `json:"pipeline_versions"`
		Layers           map[string]interface{} `json:"layers"`
	}{PipelineVersions: versions, Layers: layers}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
