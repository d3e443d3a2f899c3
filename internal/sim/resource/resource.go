package resource

import "fmt"

// BasicKind names a basic resource category a planet can synthesize
// directly from one charged energy cell.
type BasicKind string

const (
	Oxygen   BasicKind = "OXYGEN"
	Hydrogen BasicKind = "HYDROGEN"
	Carbon   BasicKind = "CARBON"
	Silicon  BasicKind = "SILICON"
)

// ComplexKind names a combination recipe output.
type ComplexKind string

const (
	Water     ComplexKind = "WATER"
	Diamond   ComplexKind = "DIAMOND"
	Life      ComplexKind = "LIFE"
	Robot     ComplexKind = "ROBOT"
	Dolphin   ComplexKind = "DOLPHIN"
	AIPartner ComplexKind = "AI_PARTNER"
)

// BasicResource is one synthesized unit of a basic category.
type BasicResource struct {
	Kind  BasicKind `json:"kind"`
	Units int       `json:"units"`
}

// ComplexResource is the output of a combination recipe. It keeps its
// two inputs so a later decomposition can return them intact.
type ComplexResource struct {
	Kind   ComplexKind     `json:"kind"`
	First  GenericResource `json:"first"`
	Second GenericResource `json:"second"`
}

// GenericResource is a tagged basic-or-complex union. Exactly one of
// the two fields is set.
type GenericResource struct {
	Basic   *BasicResource   `json:"basic,omitempty"`
	Complex *ComplexResource `json:"complex,omitempty"`
}

func FromBasic(b BasicResource) GenericResource {
	return GenericResource{Basic: &b}
}

func FromComplex(c ComplexResource) GenericResource {
	return GenericResource{Complex: &c}
}

func (g GenericResource) IsBasic() bool   { return g.Basic != nil }
func (g GenericResource) IsComplex() bool { return g.Complex != nil }

func (g GenericResource) String() string {
	switch {
	case g.Basic != nil:
		return string(g.Basic.Kind)
	case g.Complex != nil:
		return string(g.Complex.Kind)
	}
	return "EMPTY"
}

// ParseBasicKind maps a wire string onto a BasicKind.
func ParseBasicKind(s string) (BasicKind, error) {
	switch BasicKind(s) {
	case Oxygen, Hydrogen, Carbon, Silicon:
		return BasicKind(s), nil
	}
	return "", fmt.Errorf("unknown basic resource kind: %q", s)
}

// BasicKinds lists every basic category in a stable order.
func BasicKinds() []BasicKind {
	return []BasicKind{Carbon, Silicon, Oxygen, Hydrogen}
}

// ComplexKinds lists every combination recipe output in a stable order.
func ComplexKinds() []ComplexKind {
	return []ComplexKind{Water, Diamond, Life, Robot, Dolphin, AIPartner}
}
