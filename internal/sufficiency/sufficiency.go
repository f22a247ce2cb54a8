// Package sufficiency implements layer 12, SufficiencySummary: the six
// fixed-domain aggregation gate that reduces the whole pipeline to a single
// PASS/WARN/FAIL/SKIP verdict using profile_thresholds_v1.
//
// spec.md §4.12 names a "coverage layer" feeding the required_effects
// domain's #missing/#unknowns inputs without naming a layer that produces
// those counts directly. This implementation resolves that gap (recorded
// in DESIGN.md) by deriving them from layer 1's engine_requirements: missing
// is the count of flags that evaluated false, and unknowns is 1 when
// UNKNOWN_PRIMITIVE_ID_IN_SIGNATURES appears in layer 1's codes, else 0 —
// the closest available proxy without inventing a new upstream layer.
package sufficiency

import (
	"github.com/jordenrsantos-sys/MTG-Deck/internal/coherence"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/commanderreliability"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/requirements"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/resilience"
)

// Version is the compiled version pin for this layer.
const Version = "sufficiency_summary_v1"

// DomainVerdict is one domain's status plus its sorted, unique codes.
type DomainVerdict struct {
	Status model.Verdict `json:"status"`
	Codes  []string      `json:"codes"`
}

// Payload is the layer-12 output.
type Payload struct {
	model.Base
	AggregateStatus            model.Verdict            `json:"aggregate_status"`
	ProfileThresholdsVersion   string                   `json:"profile_thresholds_version"`
	CalibrationSnapshotVersion string                   `json:"calibration_snapshot_version"`
	SelectedProfileID          string                   `json:"selected_profile_id"`
	SelectionSource            string                   `json:"selection_source"`
	Domains                    map[string]DomainVerdict `json:"domains"`
}

// Upstream bundles the required-layer payloads SufficiencySummary reads.
// Every one must be Ready ({OK, WARN}) for the readiness gate to pass.
type Upstream struct {
	Requirements requirements.Payload
	Coherence    coherence.Payload
	Resilience   resilience.Payload
	Commander    commanderreliability.Payload
}

func (u Upstream) ready() bool {
	return u.Requirements.Base.Ready() && u.Coherence.Base.Ready() && u.Resilience.Base.Ready() && u.Commander.Base.Ready()
}

// Run evaluates the six fixed domains and aggregates to a single verdict.
// thresholds/thresholdsOK comes from packs.Resolve against profile_thresholds_v1.
func Run(up Upstream, thresholds packs.ProfileThresholds, thresholdsOK bool) Payload {
	if !up.ready() {
		reason := "UPSTREAM_PHASE3_UNAVAILABLE"
		return Payload{
			Base:           model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}},
			AggregateStatus: model.VerdictSkip,
			Domains:         map[string]DomainVerdict{},
		}
	}
	if !thresholdsOK {
		reason := "PROFILE_THRESHOLDS_UNAVAILABLE"
		return Payload{
			Base:           model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}},
			AggregateStatus: model.VerdictSkip,
			Domains:         map[string]DomainVerdict{},
		}
	}
	if thresholds.CalibrationSnapshotVersion == "" {
		reason := "CALIBRATION_SNAPSHOT_UNAVAILABLE"
		return Payload{
			Base:           model.Base{Version: Version, Status: model.StatusSkip, ReasonCode: &reason, Codes: []string{}},
			AggregateStatus: model.VerdictSkip,
			Domains:         map[string]DomainVerdict{},
		}
	}

	domains := make(map[string]DomainVerdict, len(packs.RequiredDomains))
	for _, domain := range packs.RequiredDomains {
		domains[domain] = evaluateDomain(domain, up, thresholds.Domains[domain])
	}

	return Payload{
		Base:                       model.Base{Version: Version, Status: model.StatusOK, Codes: []string{}},
		AggregateStatus:            aggregate(domains),
		ProfileThresholdsVersion:   thresholds.ProfileThresholdsVersion,
		CalibrationSnapshotVersion: thresholds.CalibrationSnapshotVersion,
		SelectedProfileID:          thresholds.SelectedProfileID,
		SelectionSource:            thresholds.SelectionSource,
		Domains:                    domains,
	}
}

func evaluateDomain(domain string, up Upstream, t packs.DomainThresholds) DomainVerdict {
	switch domain {
	case "required_effects":
		return requiredEffectsDomain(up.Requirements, t)
	case "baseline_prob":
		return baselineProbDomain(up.Commander, t)
	case "stress_prob":
		return stressProbDomain(up.Resilience, t)
	case "coherence":
		return coherenceDomain(up.Coherence, t)
	case "resilience":
		return resilienceDomain(up.Resilience, t)
	case "commander":
		return commanderDomain(up.Requirements, up.Commander, t)
	default:
		return DomainVerdict{Status: model.VerdictWarn, Codes: []string{}}
	}
}

func requiredEffectsDomain(req requirements.Payload, t packs.DomainThresholds) DomainVerdict {
	missing := 0
	for _, present := range req.EngineRequirements {
		if !present {
			missing++
		}
	}
	unknowns := 0
	for _, c := range req.Codes {
		if c == "UNKNOWN_PRIMITIVE_ID_IN_SIGNATURES" {
			unknowns = 1
		}
	}

	var codes []string
	status := model.VerdictPass
	if t.MaxMissing == nil {
		codes = append(codes, "REQUIRED_EFFECTS_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if missing > *t.MaxMissing {
		codes = append(codes, "REQUIRED_EFFECTS_MISSING_EXCEEDS_MAX")
		status = worse(status, model.VerdictFail)
	}
	if t.MaxUnknowns == nil {
		codes = append(codes, "REQUIRED_EFFECTS_UNKNOWNS_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if unknowns > *t.MaxUnknowns {
		codes = append(codes, "REQUIRED_EFFECTS_UNKNOWNS_EXCEEDS_MAX")
		status = worse(status, model.VerdictWarn)
	}
	return DomainVerdict{Status: status, Codes: model.SortedUniqueStrings(codes)}
}

func baselineProbDomain(cmd commanderreliability.Payload, t packs.DomainThresholds) DomainVerdict {
	var codes []string
	status := model.VerdictPass
	if t.MinCastReliability == nil {
		codes = append(codes, "BASELINE_PROB_THRESHOLD_MISSING")
		return DomainVerdict{Status: model.VerdictWarn, Codes: model.SortedUniqueStrings(codes)}
	}
	checks := []*float64{cmd.CastReliabilityT3, cmd.CastReliabilityT4, cmd.CastReliabilityT6}
	for _, v := range checks {
		if v == nil {
			codes = append(codes, "BASELINE_PROB_CAST_RELIABILITY_UNAVAILABLE")
			status = worse(status, model.VerdictWarn)
			continue
		}
		if *v < *t.MinCastReliability {
			codes = append(codes, "BASELINE_PROB_CAST_RELIABILITY_BELOW_MIN")
			status = worse(status, model.VerdictFail)
		}
	}
	return DomainVerdict{Status: status, Codes: model.SortedUniqueStrings(codes)}
}

func stressProbDomain(res resilience.Payload, t packs.DomainThresholds) DomainVerdict {
	var codes []string
	status := model.VerdictPass

	if t.MinContinuity == nil {
		codes = append(codes, "STRESS_PROB_CONTINUITY_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if res.EngineContinuityAfterRemoval < *t.MinContinuity {
		codes = append(codes, "STRESS_PROB_CONTINUITY_BELOW_MIN")
		status = worse(status, model.VerdictFail)
	}
	if t.MinRebuild == nil {
		codes = append(codes, "STRESS_PROB_REBUILD_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if res.RebuildAfterWipe < *t.MinRebuild {
		codes = append(codes, "STRESS_PROB_REBUILD_BELOW_MIN")
		status = worse(status, model.VerdictFail)
	}
	if t.MaxGraveyardFragility == nil {
		codes = append(codes, "STRESS_PROB_GRAVEYARD_FRAGILITY_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if res.GraveyardFragilityDelta > *t.MaxGraveyardFragility {
		codes = append(codes, "STRESS_PROB_GRAVEYARD_FRAGILITY_EXCEEDS_MAX")
		status = worse(status, model.VerdictFail)
	}
	return DomainVerdict{Status: status, Codes: model.SortedUniqueStrings(codes)}
}

func coherenceDomain(c coherence.Payload, t packs.DomainThresholds) DomainVerdict {
	var codes []string
	status := model.VerdictPass

	deadSlotRatio := 0.0
	if c.PlayableSlotCount > 0 {
		deadSlotRatio = float64(c.DeadSlotCount) / float64(c.PlayableSlotCount)
	}

	if t.MaxDeadSlotRatio == nil {
		codes = append(codes, "COHERENCE_DEAD_SLOT_RATIO_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if deadSlotRatio > *t.MaxDeadSlotRatio {
		codes = append(codes, "COHERENCE_DEAD_SLOT_RATIO_EXCEEDS_MAX")
		status = worse(status, model.VerdictFail)
	}
	if t.MinOverlapScore == nil {
		codes = append(codes, "COHERENCE_OVERLAP_SCORE_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if c.OverlapScore < *t.MinOverlapScore {
		codes = append(codes, "COHERENCE_OVERLAP_SCORE_BELOW_MIN")
		status = worse(status, model.VerdictFail)
	}
	return DomainVerdict{Status: status, Codes: model.SortedUniqueStrings(codes)}
}

func resilienceDomain(res resilience.Payload, t packs.DomainThresholds) DomainVerdict {
	var codes []string
	status := model.VerdictPass
	if res.CommanderFragilityDelta == nil {
		codes = append(codes, "RESILIENCE_COMMANDER_FRAGILITY_UNAVAILABLE")
		return DomainVerdict{Status: model.VerdictWarn, Codes: model.SortedUniqueStrings(codes)}
	}
	if t.MaxCommanderFragility == nil {
		codes = append(codes, "RESILIENCE_COMMANDER_FRAGILITY_THRESHOLD_MISSING")
		return DomainVerdict{Status: model.VerdictWarn, Codes: model.SortedUniqueStrings(codes)}
	}
	if *res.CommanderFragilityDelta > *t.MaxCommanderFragility {
		codes = append(codes, "RESILIENCE_COMMANDER_FRAGILITY_EXCEEDS_MAX")
		status = worse(status, model.VerdictFail)
	}
	return DomainVerdict{Status: status, Codes: model.SortedUniqueStrings(codes)}
}

func commanderDomain(req requirements.Payload, cmd commanderreliability.Payload, t packs.DomainThresholds) DomainVerdict {
	var codes []string
	status := model.VerdictPass

	if req.CommanderDependent != model.CommanderDependentLow {
		if cmd.ProtectionCoverageProxy == nil {
			codes = append(codes, "COMMANDER_PROTECTION_COVERAGE_UNAVAILABLE")
			status = worse(status, model.VerdictWarn)
		} else if t.MinProtectionCoverage == nil {
			codes = append(codes, "COMMANDER_PROTECTION_COVERAGE_THRESHOLD_MISSING")
			status = worse(status, model.VerdictWarn)
		} else if *cmd.ProtectionCoverageProxy < *t.MinProtectionCoverage {
			codes = append(codes, "COMMANDER_PROTECTION_COVERAGE_BELOW_MIN")
			status = worse(status, model.VerdictFail)
		}
	}

	if cmd.CommanderFragilityDelta == nil {
		codes = append(codes, "COMMANDER_FRAGILITY_UNAVAILABLE")
		status = worse(status, model.VerdictWarn)
	} else if t.MaxCommanderFragility == nil {
		codes = append(codes, "COMMANDER_FRAGILITY_THRESHOLD_MISSING")
		status = worse(status, model.VerdictWarn)
	} else if *cmd.CommanderFragilityDelta > *t.MaxCommanderFragility {
		codes = append(codes, "COMMANDER_FRAGILITY_EXCEEDS_MAX")
		status = worse(status, model.VerdictFail)
	}

	return DomainVerdict{Status: status, Codes: model.SortedUniqueStrings(codes)}
}

// worse returns the more severe of a/b under FAIL > WARN > PASS.
func worse(a, b model.Verdict) model.Verdict {
	rank := func(v model.Verdict) int {
		switch v {
		case model.VerdictFail:
			return 3
		case model.VerdictWarn:
			return 2
		case model.VerdictSkip:
			return 4
		default:
			return 1
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// aggregate reduces the six domain verdicts to a single status under
// SKIP > FAIL > WARN > PASS.
func aggregate(domains map[string]DomainVerdict) model.Verdict {
	best := model.VerdictPass
	for _, domain := range packs.RequiredDomains {
		best = worse(best, domains[domain].Status)
	}
	return best
}
