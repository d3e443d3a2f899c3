// Package recipes holds the planet's recipe catalog: the generation
// rules that turn one charged cell into a basic resource, and the
// combination rules that describe complex resource shapes.
package recipes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"planetfall.ai/internal/sim/resource"
)

type Catalog struct {
	Generation   GenerationCatalog
	Combinations CombinationCatalog
}

type GenerationCatalog struct {
	ByKind map[resource.BasicKind]GenerationDef
	Digest string
}

type GenerationDef struct {
	Kind  string `json:"kind"`
	Units int    `json:"units"`
}

type CombinationCatalog struct {
	ByKind map[resource.ComplexKind]CombinationDef
	Digest string
}

type CombinationDef struct {
	Kind   string             `json:"kind"`
	Inputs []resource.SlotDef `json:"inputs"`
}

func Load(configDir string) (*Catalog, error) {
	var c Catalog
	if err := loadGeneration(filepath.Join(configDir, "generation.json"), &c.Generation); err != nil {
		return nil, err
	}
	if err := loadCombinations(filepath.Join(configDir, "combinations.json"), &c.Combinations); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadGeneration(path string, out *GenerationCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []GenerationDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("generation.json: %w", err)
	}
	out.ByKind = map[resource.BasicKind]GenerationDef{}
	for _, d := range defs {
		kind, err := resource.ParseBasicKind(d.Kind)
		if err != nil {
			return fmt.Errorf("generation.json: %w", err)
		}
		if d.Units <= 0 {
			return fmt.Errorf("generation.json: %s: units must be positive", d.Kind)
		}
		if _, dup := out.ByKind[kind]; dup {
			return fmt.Errorf("generation.json: duplicate kind %s", d.Kind)
		}
		out.ByKind[kind] = d
	}
	return nil
}

func loadCombinations(path string, out *CombinationCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []CombinationDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("combinations.json: %w", err)
	}
	out.ByKind = map[resource.ComplexKind]CombinationDef{}
	for _, d := range defs {
		kind := resource.ComplexKind(d.Kind)
		first, second, ok := resource.RecipeSlots(kind)
		if !ok {
			return fmt.Errorf("combinations.json: unknown recipe %q", d.Kind)
		}
		if len(d.Inputs) != 2 {
			return fmt.Errorf("combinations.json: %s: recipes take exactly 2 inputs, got %d", d.Kind, len(d.Inputs))
		}
		// The declared slots must agree with the decomposition shapes;
		// a drifting config would silently break refusal round-trips.
		if d.Inputs[0] != first || d.Inputs[1] != second {
			return fmt.Errorf("combinations.json: %s: input slots %v do not match recipe shape [%v %v]",
				d.Kind, d.Inputs, first, second)
		}
		if _, dup := out.ByKind[kind]; dup {
			return fmt.Errorf("combinations.json: duplicate recipe %s", d.Kind)
		}
		out.ByKind[kind] = d
	}
	return nil
}
