package packs

import (
	"encoding/json"
	"fmt"
	"os"
)

// ProfileThresholdsVersion is the expected version tag for the pack.
const ProfileThresholdsVersion = "profile_thresholds_v1"

// DomainThresholds is one domain's fixed comparison thresholds. Not every
// field is meaningful to every domain; SufficiencySummary reads only the
// fields its domain's tests use.
type DomainThresholds struct {
	MaxMissing          *int     `json:"max_missing,omitempty"`
	MaxUnknowns          *int     `json:"max_unknowns,omitempty"`
	MinCastReliability    *float64 `json:"min_cast_reliability,omitempty"`
	MinContinuity         *float64 `json:"min_continuity,omitempty"`
	MinRebuild            *float64 `json:"min_rebuild,omitempty"`
	MaxGraveyardFragility *float64 `json:"max_graveyard_fragility,omitempty"`
	MaxDeadSlotRatio       *float64 `json:"max_dead_slot_ratio,omitempty"`
	MinOverlapScore        *float64 `json:"min_overlap_score,omitempty"`
	MaxCommanderFragility  *float64 `json:"max_commander_fragility,omitempty"`
	MinProtectionCoverage  *float64 `json:"min_protection_coverage,omitempty"`
}

// ProfileThresholds is one profile's resolved domain threshold set.
type ProfileThresholds struct {
	ProfileThresholdsVersion  string
	CalibrationSnapshotVersion string
	SelectedProfileID          string
	SelectionSource            string
	Domains                    map[string]DomainThresholds
}

// ProfileThresholdsPack is the full loaded pack: a version plus a map of
// profile id -> resolved thresholds, and the calibration snapshot version
// pin that every resolved profile row inherits.
type ProfileThresholdsPack struct {
	Version                    string
	CalibrationSnapshotVersion string
	Profiles                   map[string]map[string]DomainThresholds
	DefaultProfileID           string
}

// RequiredDomains is the fixed, closed set of domains SufficiencySummary
// evaluates, in aggregation order.
var RequiredDomains = []string{
	"required_effects", "baseline_prob", "stress_prob", "coherence", "resilience", "commander",
}

// LoadProfileThresholds reads and validates a profile_thresholds_v1 pack
// file: root {version, calibration_snapshot_version, default_profile_id,
// profiles{profile_id -> domains{domain -> thresholds}}}.
func LoadProfileThresholds(p string) (ProfileThresholdsPack, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return ProfileThresholdsPack{}, fmt.Errorf("PROFILE_THRESHOLDS_V1_MISSING: %w", err)
	}

	var doc struct {
		Version                    string                              `json:"version"`
		CalibrationSnapshotVersion string                              `json:"calibration_snapshot_version"`
		DefaultProfileID           string                              `json:"default_profile_id"`
		Profiles                   map[string]map[string]DomainThresholds `json:"profiles"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ProfileThresholdsPack{}, fmt.Errorf("PROFILE_THRESHOLDS_V1_INVALID_JSON: %w", err)
	}
	if doc.Version != ProfileThresholdsVersion {
		return ProfileThresholdsPack{}, fmt.Errorf("PROFILE_THRESHOLDS_V1_INVALID: version must equal %q", ProfileThresholdsVersion)
	}

	return ProfileThresholdsPack{
		Version:                    doc.Version,
		CalibrationSnapshotVersion: doc.CalibrationSnapshotVersion,
		Profiles:                   doc.Profiles,
		DefaultProfileID:           doc.DefaultProfileID,
	}, nil
}

// Resolve returns the resolved ProfileThresholds for profileID, falling
// back to the pack's default_profile_id when profileID is empty or unknown
// and a default is configured. ok is false only when no thresholds row can
// be resolved at all. An empty calibration_snapshot_version is still
// returned with ok=true — SufficiencySummary distinguishes "no thresholds
// row" (PROFILE_THRESHOLDS_UNAVAILABLE) from "thresholds row present but
// uncalibrated" (CALIBRATION_SNAPSHOT_UNAVAILABLE) per spec.md §9's open
// question on calibration_snapshot_v1, so the two conditions must not
// collapse into the same ok=false signal here.
func Resolve(pack ProfileThresholdsPack, profileID string) (ProfileThresholds, bool) {
	id := profileID
	source := "request_profile_id"
	domains, ok := pack.Profiles[id]
	if !ok {
		id = pack.DefaultProfileID
		source = "default_profile_id"
		domains, ok = pack.Profiles[id]
	}
	if !ok {
		return ProfileThresholds{}, false
	}

	return ProfileThresholds{
		ProfileThresholdsVersion:   pack.Version,
		CalibrationSnapshotVersion: pack.CalibrationSnapshotVersion,
		SelectedProfileID:          id,
		SelectionSource:            source,
		Domains:                    domains,
	}, true
}
