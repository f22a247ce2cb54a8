// Package indexio loads the compiled per-card primitive index from a local
// JSON file into model.PrimitiveIndex. Producing that index — card
// ingestion, name resolution, decklist parsing, taxonomy compilation — is
// explicitly out of scope for this pipeline (spec.md §1); this package only
// reads the already-compiled artifact.
package indexio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
)

// Document is the on-disk shape of a compiled primitive index.
type Document struct {
	PrimitivesBySlot map[string][]string `json:"primitives_by_slot"`
	PlayableSlotIDs  []string            `json:"playable_slot_ids"`
	CommanderSlotID  string              `json:"commander_slot_id,omitempty"`
}

// Load reads and parses a primitive index document from path, normalizing
// it before returning.
func Load(path string) (model.PrimitiveIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.PrimitiveIndex{}, fmt.Errorf("PRIMITIVE_INDEX_UNAVAILABLE: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.PrimitiveIndex{}, fmt.Errorf("PRIMITIVE_INDEX_INVALID_JSON: %w", err)
	}
	index := model.PrimitiveIndex{
		PrimitivesBySlot: doc.PrimitivesBySlot,
		PlayableSlotIDs:  doc.PlayableSlotIDs,
		CommanderSlotID:  doc.CommanderSlotID,
	}
	return index.Normalized(), nil
}
