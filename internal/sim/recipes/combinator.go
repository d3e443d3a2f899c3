package recipes

import (
	"fmt"

	"planetfall.ai/internal/sim/resource"
)

// Combinator advertises the combination recipes a planet offers. The
// catalog always knows every recipe shape; the advertised set is the
// subset this planet variant will actually run, which for a
// generator-only planet is empty.
type Combinator struct {
	catalog *Catalog
	kinds   []resource.ComplexKind
}

func NewCombinator(catalog *Catalog, kinds []resource.ComplexKind) (*Combinator, error) {
	for _, k := range kinds {
		if _, ok := catalog.Combinations.ByKind[k]; !ok {
			return nil, fmt.Errorf("recipes: no combination recipe for %s", k)
		}
	}
	out := make([]resource.ComplexKind, len(kinds))
	copy(out, kinds)
	return &Combinator{catalog: catalog, kinds: out}, nil
}

// AvailableRecipes lists the combination recipes this planet offers.
func (c *Combinator) AvailableRecipes() []resource.ComplexKind {
	out := make([]resource.ComplexKind, len(c.kinds))
	copy(out, c.kinds)
	return out
}
