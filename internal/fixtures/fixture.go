// Package fixtures loads golden input/expected-output fixtures for the
// sufficiency pipeline and diffs a fresh pipeline.Run against them.
// Adapted from the teacher's replay fixture format (internal/replay):
// the same top-level shape (description, start state, config,
// expected results) generalized from a conversational-turn replay to a
// single deterministic pipeline build.
package fixtures

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/indexio"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/pipeline"
)

// Fixture is the top-level JSON structure for a pipeline fixture file.
type Fixture struct {
	Description string          `json:"description"`
	Index       *indexio.Document `json:"index,omitempty"`
	Request     FixtureRequest  `json:"request"`
	Expected    ExpectedResult  `json:"expected"`
}

// FixtureRequest mirrors pipeline.Request's runtime-recognized selection
// inputs, minus the already-separate Index field.
type FixtureRequest struct {
	FormatID               string `json:"format_id"`
	ProfileID              string `json:"profile_id"`
	BracketID              string `json:"bracket_id"`
	RequestOverrideModelID string `json:"request_override_model_id"`
	DBSnapshotID           string `json:"db_snapshot_id"`
}

// ExpectedResult names the fields a fixture pins. BuildHashV1, when
// non-empty, is the strictest check available: any drift at all changes
// it. Layers, when non-empty, pins individual layer payloads by name for
// fixtures that only care about one or two layers.
type ExpectedResult struct {
	Status      string                     `json:"status,omitempty"`
	BuildHashV1 string                     `json:"build_hash_v1,omitempty"`
	Unknowns    []string                   `json:"unknowns,omitempty"`
	Layers      map[string]json.RawMessage `json:"layers,omitempty"`
}

// Load reads and parses a fixture file from path.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToPipelineRequest converts the fixture's request section (plus its
// optional embedded index document) into a pipeline.Request.
func (f *Fixture) ToPipelineRequest() pipeline.Request {
	req := pipeline.Request{
		FormatID:               f.Request.FormatID,
		ProfileID:              f.Request.ProfileID,
		BracketID:              f.Request.BracketID,
		RequestOverrideModelID: f.Request.RequestOverrideModelID,
		DBSnapshotID:           f.Request.DBSnapshotID,
	}
	if f.Index != nil {
		index := model.PrimitiveIndex{
			PrimitivesBySlot: f.Index.PrimitivesBySlot,
			PlayableSlotIDs:  f.Index.PlayableSlotIDs,
			CommanderSlotID:  f.Index.CommanderSlotID,
		}
		normalized := index.Normalized()
		req.Index = &normalized
	}
	return req
}

// Diff describes one mismatch between a fixture's expectations and an
// actual pipeline.BuildResult.
type Diff struct {
	Field string
	Want  string
	Got   string
}

// Compare runs the fixture's expectations against an actual BuildResult,
// returning every mismatch found (never stopping at the first one, so a
// single run reports everything wrong at once).
func (f *Fixture) Compare(result pipeline.BuildResult) []Diff {
	var diffs []Diff

	if f.Expected.Status != "" && string(result.Status) != f.Expected.Status {
		diffs = append(diffs, Diff{Field: "status", Want: f.Expected.Status, Got: string(result.Status)})
	}
	if f.Expected.BuildHashV1 != "" && result.BuildHashV1 != f.Expected.BuildHashV1 {
		diffs = append(diffs, Diff{Field: "build_hash_v1", Want: f.Expected.BuildHashV1, Got: result.BuildHashV1})
	}
	if f.Expected.Unknowns != nil {
		wantJSON, _ := json.Marshal(f.Expected.Unknowns)
		gotJSON, _ := json.Marshal(result.Unknowns)
		if string(wantJSON) != string(gotJSON) {
			diffs = append(diffs, Diff{Field: "unknowns", Want: string(wantJSON), Got: string(gotJSON)})
		}
	}
	for name, want := range f.Expected.Layers {
		got, ok := result.Result.Layers[name]
		if !ok {
			diffs = append(diffs, Diff{Field: "layers." + name, Want: string(want), Got: "<missing>"})
			continue
		}
		gotJSON, err := json.Marshal(got)
		if err != nil {
			diffs = append(diffs, Diff{Field: "layers." + name, Want: string(want), Got: "<marshal error: " + err.Error() + ">"})
			continue
		}
		if !jsonEqual(want, gotJSON) {
			diffs = append(diffs, Diff{Field: "layers." + name, Want: string(want), Got: string(gotJSON)})
		}
	}
	return diffs
}

// jsonEqual compares two JSON documents by value rather than by byte,
// since the expected fixture payload may format whitespace or key order
// differently from json.Marshal's canonical output.
func jsonEqual(a, b json.RawMessage) bool {
	var va, vb interface{}
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	aJSON, _ := json.Marshal(va)
	bJSON, _ := json.Marshal(vb)
	return string(aJSON) == string(bJSON)
}
