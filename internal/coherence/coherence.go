// Package coherence implements layer 2, Coherence: dead-slot detection,
// primitive concentration index, and pairwise Jaccard overlap over the
// normalized primitive index. Graph structure (out of scope for this
// pipeline entirely) must never influence overlap_score — this package
// never imports anything graph-shaped.
package coherence

import (
	"sort"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
)

// Version is the compiled version pin for this layer.
const Version = "coherence_v1"

// PrimitiveShare is one row of the top-8-by-share output table.
type PrimitiveShare struct {
	PrimitiveID string  `json:"primitive_id"`
	Coverage    int     `json:"coverage"`
	Share       float64 `json:"share"`
}

// Payload is the layer-2 output.
type Payload struct {
	model.Base
	DeadSlotCount              int              `json:"dead_slot_count"`
	DeadSlotIDs                []string         `json:"dead_slot_ids"`
	PlayableSlotCount          int              `json:"playable_slot_count"`
	PrimitiveConcentrationIndex float64          `json:"primitive_concentration_index"`
	OverlapScore                float64          `json:"overlap_score"`
	TopPrimitives                []PrimitiveShare `json:"top_primitives"`
}

// Run computes coherence metrics over the normalized primitive index. index
// is nil when the upstream primitive index is unavailable.
func Run(index *model.PrimitiveIndex) Payload {
	if index == nil {
		reason := "PRIMITIVE_INDEX_UNAVAILABLE"
		return Payload{
			Base: model.Base{
				Version:    Version,
				Status:     model.StatusSkip,
				ReasonCode: &reason,
				Codes:      []string{},
			},
			TopPrimitives: []PrimitiveShare{},
			DeadSlotIDs:   []string{},
		}
	}

	norm := index.Normalized()
	playable := norm.PlayableSlotIDs

	var deadSlots []string
	var withPrimitives []string
	for _, slot := range playable {
		if len(norm.PrimitivesBySlot[slot]) == 0 {
			deadSlots = append(deadSlots, slot)
		} else {
			withPrimitives = append(withPrimitives, slot)
		}
	}
	sort.Strings(deadSlots)
	sort.Strings(withPrimitives)

	concentration, shares := concentrationIndex(norm, withPrimitives)
	overlap := overlapScore(norm, withPrimitives)

	var codes []string
	if len(deadSlots) > 0 {
		codes = append(codes, "DEAD_SLOTS_PRESENT")
	}

	status := model.StatusOK
	if len(codes) > 0 {
		status = model.StatusWarn
	}

	if deadSlots == nil {
		deadSlots = []string{}
	}

	return Payload{
		Base: model.Base{
			Version: Version,
			Status:  status,
			Codes:   model.SortedUniqueStrings(codes),
		},
		DeadSlotCount:               len(deadSlots),
		DeadSlotIDs:                 deadSlots,
		PlayableSlotCount:           len(playable),
		PrimitiveConcentrationIndex: concentration,
		OverlapScore:                overlap,
		TopPrimitives:               shares,
	}
}

// concentrationIndex returns max_P coverage(P)/D over the slots that carry
// at least one primitive (D), plus the top-8 coverage table sorted by
// share descending then primitive id ascending. Zero when D = 0.
func concentrationIndex(index model.PrimitiveIndex, withPrimitives []string) (float64, []PrimitiveShare) {
	d := len(withPrimitives)
	if d == 0 {
		return 0, []PrimitiveShare{}
	}

	coverage := map[string]int{}
	for _, slot := range withPrimitives {
		for _, p := range index.PrimitivesBySlot[slot] {
			coverage[p]++
		}
	}

	ids := make([]string, 0, len(coverage))
	for p := range coverage {
		ids = append(ids, p)
	}
	sort.Strings(ids)

	maxShare := 0.0
	rows := make([]PrimitiveShare, 0, len(ids))
	for _, p := range ids {
		cov := coverage[p]
		share := roundutil.Half6(float64(cov) / float64(d))
		if share > maxShare {
			maxShare = share
		}
		rows = append(rows, PrimitiveShare{PrimitiveID: p, Coverage: cov, Share: share})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Share != rows[j].Share {
			return rows[i].Share > rows[j].Share
		}
		return rows[i].PrimitiveID < rows[j].PrimitiveID
	})
	if len(rows) > 8 {
		rows = rows[:8]
	}

	return roundutil.Half6(maxShare), rows
}

// overlapScore returns the average pairwise Jaccard similarity over all
// unordered pairs of slots in withPrimitives; 0 when |withPrimitives| < 2.
func overlapScore(index model.PrimitiveIndex, withPrimitives []string) float64 {
	n := len(withPrimitives)
	if n < 2 {
		return 0
	}

	sets := make([]map[string]struct{}, n)
	for i, slot := range withPrimitives {
		set := make(map[string]struct{}, len(index.PrimitivesBySlot[slot]))
		for _, p := range index.PrimitivesBySlot[slot] {
			set[p] = struct{}{}
		}
		sets[i] = set
	}

	total := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}

	avg := total / float64(pairs)
	return roundutil.ClampProbability(roundutil.Half6(avg))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
