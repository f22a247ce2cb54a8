// Package model holds the shared, read-only domain types that every layer
// of the sufficiency pipeline consumes: the primitive index produced by the
// (out-of-scope) taxonomy compiler, and the small closed vocabularies
// (status, commander dependency class) reused across layers.
package model

import "sort"

// PrimitiveIndex is the compiled per-card primitive index: which primitive
// tags sit on which deck slot, and which slots are playable. It is produced
// upstream (taxonomy compilation is out of scope here) and is treated as
// immutable for the lifetime of a pipeline run.
type PrimitiveIndex struct {
	// PrimitivesBySlot maps slot_id -> the primitive ids tagged on that slot.
	PrimitivesBySlot map[string][]string
	// PlayableSlotIDs lists every slot considered part of the 99-card deck.
	PlayableSlotIDs []string
	// CommanderSlotID is the slot id of the commander, or "" if unknown.
	CommanderSlotID string
}

// Normalized returns a copy with every slot id list deduplicated, non-empty
// filtered, and lexicographically sorted, and every primitive list likewise.
// Every layer that reads the index normalizes it first, per spec: normalize
// before use.
func (p PrimitiveIndex) Normalized() PrimitiveIndex {
	out := PrimitiveIndex{
		PrimitivesBySlot: make(map[string][]string, len(p.PrimitivesBySlot)),
		CommanderSlotID:  p.CommanderSlotID,
	}
	out.PlayableSlotIDs = sortedUniqueNonEmpty(p.PlayableSlotIDs)
	for slot, prims := range p.PrimitivesBySlot {
		if slot == "" {
			continue
		}
		out.PrimitivesBySlot[slot] = sortedUniqueNonEmpty(prims)
	}
	return out
}

// PlayableSet returns the normalized playable slot ids as a set.
func (p PrimitiveIndex) PlayableSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.PlayableSlotIDs))
	for _, slot := range p.PlayableSlotIDs {
		set[slot] = struct{}{}
	}
	return set
}

// SlotsWithAny returns the sorted playable slot ids that carry at least one
// of the given primitive ids.
func (p PrimitiveIndex) SlotsWithAny(primitiveIDs map[string]struct{}) []string {
	playable := p.PlayableSet()
	var out []string
	for slot, prims := range p.PrimitivesBySlot {
		if _, ok := playable[slot]; !ok {
			continue
		}
		for _, prim := range prims {
			if _, ok := primitiveIDs[prim]; ok {
				out = append(out, slot)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// SlotsWithPrimitive returns the sorted playable slot ids carrying the given
// single primitive id.
func (p PrimitiveIndex) SlotsWithPrimitive(primitiveID string) []string {
	return p.SlotsWithAny(map[string]struct{}{primitiveID: {}})
}

func sortedUniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
