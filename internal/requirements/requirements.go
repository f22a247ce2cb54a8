// Package requirements implements layer 1, RequirementDetection: boolean
// engine_requirements flags and the commander_dependent class, derived from
// the compiled primitive index and the dependency_signatures_v1 pack.
//
// dependency_signatures_v1's schema — {version, signatures: {name: {
// any_required_primitives: [...]}}} — matches its upstream Python loader;
// what that loader never produces is the commander_dependent classification
// itself (there it is just a bool). This implementation resolves
// commander_dependent via three reserved class signatures —
// COMMANDER_DEPENDENT_HIGH, COMMANDER_DEPENDENT_MEDIUM,
// COMMANDER_DEPENDENT_LOW — evaluated against the commander's own slot
// alone, highest priority first (spec.md §9 Open Questions).
package requirements

import (
	"github.com/jordenrsantos-sys/MTG-Deck/internal/errcode"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/model"
	"github.com/jordenrsantos-sys/MTG-Deck/internal/packs"
)

// Version is the compiled version pin for this layer, reported in
// result.pipeline_versions.
const Version = "requirement_detection_v1"

var classPriority = []string{
	"COMMANDER_DEPENDENT_HIGH",
	"COMMANDER_DEPENDENT_MEDIUM",
	"COMMANDER_DEPENDENT_LOW",
}

var classValue = map[string]model.CommanderDependent{
	"COMMANDER_DEPENDENT_HIGH":   model.CommanderDependentHigh,
	"COMMANDER_DEPENDENT_MEDIUM": model.CommanderDependentMedium,
	"COMMANDER_DEPENDENT_LOW":    model.CommanderDependentLow,
}

// Payload is the layer-1 output: engine_requirements plus commander_dependent.
type Payload struct {
	model.Base
	EngineRequirements map[string]bool          `json:"engine_requirements"`
	CommanderDependent model.CommanderDependent `json:"commander_dependent"`
}

// Run evaluates every dependency signature against the normalized primitive
// index. index is nil when the upstream primitive index is unavailable.
func Run(index *model.PrimitiveIndex, sigs packs.DependencySignatures) Payload {
	if index == nil {
		reason := "PRIMITIVE_INDEX_UNAVAILABLE"
		return Payload{
			Base: model.Base{
				Version:    Version,
				Status:     model.StatusSkip,
				ReasonCode: &reason,
				Codes:      []string{},
			},
		}
	}

	norm := index.Normalized()

	var codes []string
	requirements := make(map[string]bool, len(sigs.Signatures))
	for _, sig := range sigs.Signatures {
		matched, unknown := evaluateSignature(norm, sig)
		requirements[sig.Name] = matched
		if unknown {
			codes = append(codes, "UNKNOWN_PRIMITIVE_ID_IN_SIGNATURES")
		}
	}

	commanderDependent := model.CommanderDependentUnknown
	if norm.CommanderSlotID == "" {
		codes = append(codes, "COMMANDER_SLOT_ID_MISSING")
	} else {
		commanderPrimitives := commanderSlotPrimitives(norm)
		commanderDependent = model.CommanderDependentLow
		for _, class := range classPriority {
			sig, ok := findSignature(sigs, class)
			if !ok {
				continue
			}
			if anyPresent(commanderPrimitives, sig.AnyRequiredPrimitives) {
				commanderDependent = classValue[class]
				break
			}
		}
	}

	return Payload{
		Base: model.Base{
			Version:    Version,
			Status:     statusFor(codes),
			ReasonCode: nil,
			Codes:      model.SortedUniqueStrings(codes),
		},
		EngineRequirements: requirements,
		CommanderDependent: commanderDependent,
	}
}

func statusFor(codes []string) model.Status {
	if len(codes) == 0 {
		return model.StatusOK
	}
	return model.StatusWarn
}

func findSignature(sigs packs.DependencySignatures, name string) (packs.DependencySignature, bool) {
	for _, s := range sigs.Signatures {
		if s.Name == name {
			return s, true
		}
	}
	return packs.DependencySignature{}, false
}

func evaluateSignature(index model.PrimitiveIndex, sig packs.DependencySignature) (matched bool, unknownPrimitive bool) {
	known := allPrimitiveSet(index)
	for _, prim := range sig.AnyRequiredPrimitives {
		if _, ok := known[prim]; !ok {
			unknownPrimitive = true
			continue
		}
		if len(index.SlotsWithPrimitive(prim)) > 0 {
			matched = true
		}
	}
	return matched, unknownPrimitive
}

func allPrimitiveSet(index model.PrimitiveIndex) map[string]struct{} {
	set := make(map[string]struct{})
	playable := index.PlayableSet()
	for slot, prims := range index.PrimitivesBySlot {
		if _, ok := playable[slot]; !ok {
			continue
		}
		for _, p := range prims {
			set[p] = struct{}{}
		}
	}
	return set
}

func commanderSlotPrimitives(index model.PrimitiveIndex) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range index.PrimitivesBySlot[index.CommanderSlotID] {
		set[p] = struct{}{}
	}
	return set
}

func anyPresent(have map[string]struct{}, want []string) bool {
	for _, w := range want {
		if _, ok := have[w]; ok {
			return true
		}
	}
	return false
}

// Err builds the upstream-unavailable LayerError a downstream layer emits
// when this layer's payload is not {OK, WARN}.
func Err() *errcode.LayerError {
	return errcode.Skip(errcode.Upstream("REQUIREMENT_DETECTION"))
}
