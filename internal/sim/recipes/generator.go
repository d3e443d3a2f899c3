package recipes

import (
	"fmt"

	"planetfall.ai/internal/sim/cells"
	"planetfall.ai/internal/sim/resource"
)

// Generator is the synthesis adapter: it applies one generation recipe,
// draining exactly one charged cell per resource produced.
type Generator struct {
	catalog *Catalog
	kinds   []resource.BasicKind
}

// NewGenerator builds a generator limited to the given kinds. Every
// kind must have a recipe in the catalog; a planet configured to
// generate something it has no recipe for is a startup error.
func NewGenerator(catalog *Catalog, kinds []resource.BasicKind) (*Generator, error) {
	for _, k := range kinds {
		if _, ok := catalog.Generation.ByKind[k]; !ok {
			return nil, fmt.Errorf("recipes: no generation recipe for %s", k)
		}
	}
	out := make([]resource.BasicKind, len(kinds))
	copy(out, kinds)
	return &Generator{catalog: catalog, kinds: out}, nil
}

// AvailableKinds lists the basic categories this planet can generate.
func (g *Generator) AvailableKinds() []resource.BasicKind {
	out := make([]resource.BasicKind, len(g.kinds))
	copy(out, g.kinds)
	return out
}

func (g *Generator) Supports(kind resource.BasicKind) bool {
	for _, k := range g.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Synthesize drains the cell and produces one resource of the given
// kind. The caller must have checked the cell is charged and the kind
// supported; violating either is a bug in the dispatcher, so it is
// fatal rather than a recoverable error.
func (g *Generator) Synthesize(kind resource.BasicKind, cell *cells.Cell) resource.BasicResource {
	if !g.Supports(kind) {
		panic(fmt.Sprintf("recipes: synthesize of unsupported kind %s", kind))
	}
	def := g.catalog.Generation.ByKind[kind]
	cell.Discharge()
	return resource.BasicResource{Kind: kind, Units: def.Units}
}
