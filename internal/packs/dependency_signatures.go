package packs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DependencySignaturesVersion is the expected version tag for the pack.
const DependencySignaturesVersion = "dependency_signatures_v1"

// DependencySignature is one named engine-dependency signature: a named
// requirement satisfied by holding any primitive in AnyRequiredPrimitives.
type DependencySignature struct {
	Name                  string
	AnyRequiredPrimitives []string
}

// DependencySignatures is the full loaded pack, ordered by signature name.
type DependencySignatures struct {
	Version    string
	Signatures []DependencySignature
}

// LoadDependencySignatures reads and validates a dependency_signatures_v1
// pack file. Every signature name must be a non-empty string and every
// listed primitive id must be a non-empty string.
func LoadDependencySignatures(p string) (DependencySignatures, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return DependencySignatures{}, fmt.Errorf("DEPENDENCY_SIGNATURES_V1_MISSING: %w", err)
	}

	var doc struct {
		Version    string `json:"version"`
		Signatures map[string]struct {
			AnyRequiredPrimitives []string `json:"any_required_primitives"`
		} `json:"signatures"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DependencySignatures{}, fmt.Errorf("DEPENDENCY_SIGNATURES_V1_INVALID_JSON: %w", err)
	}
	if doc.Version != DependencySignaturesVersion {
		return DependencySignatures{}, fmt.Errorf("DEPENDENCY_SIGNATURES_V1_INVALID: version must equal %q", DependencySignaturesVersion)
	}

	names := make([]string, 0, len(doc.Signatures))
	for name := range doc.Signatures {
		if name == "" {
			return DependencySignatures{}, fmt.Errorf("DEPENDENCY_SIGNATURES_V1_INVALID: signature name must be non-empty")
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := DependencySignatures{Version: doc.Version, Signatures: make([]DependencySignature, 0, len(names))}
	for _, name := range names {
		entry := doc.Signatures[name]
		for _, prim := range entry.AnyRequiredPrimitives {
			if prim == "" {
				return DependencySignatures{}, fmt.Errorf("DEPENDENCY_SIGNATURES_V1_INVALID: %s has an empty primitive id", name)
			}
		}
		out.Signatures = append(out.Signatures, DependencySignature{Name: name, AnyRequiredPrimitives: entry.AnyRequiredPrimitives})
	}
	return out, nil
}
