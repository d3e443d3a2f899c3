package resource

import "fmt"

// CombineRequest asks a planet to run one combination recipe. First and
// Second must match the recipe's input slots, in recipe order.
type CombineRequest struct {
	Kind   ComplexKind     `json:"kind"`
	First  GenericResource `json:"first"`
	Second GenericResource `json:"second"`
}

// Decompose splits a combination request back into its two constituent
// inputs, tagged and ordered exactly as submitted, so a refused request
// can be returned to the explorer without loss.
//
// Each recipe shape is spelled out on its own: the inputs are validated
// against the slots that recipe declares, never passed through blindly.
func Decompose(req CombineRequest) (GenericResource, GenericResource, error) {
	switch req.Kind {
	case Water:
		return pair(req, basicSlot(req.First, Hydrogen), basicSlot(req.Second, Oxygen))
	case Diamond:
		return pair(req, basicSlot(req.First, Carbon), basicSlot(req.Second, Carbon))
	case Life:
		return pair(req, complexSlot(req.First, Water), basicSlot(req.Second, Carbon))
	case Robot:
		return pair(req, basicSlot(req.First, Silicon), complexSlot(req.Second, Life))
	case Dolphin:
		return pair(req, complexSlot(req.First, Water), complexSlot(req.Second, Life))
	case AIPartner:
		return pair(req, complexSlot(req.First, Robot), complexSlot(req.Second, Diamond))
	}
	return GenericResource{}, GenericResource{}, fmt.Errorf("unknown combination recipe: %q", req.Kind)
}

// RecipeSlots reports the input slots a combination recipe declares:
// the expected kind name of each input and whether it is complex.
func RecipeSlots(kind ComplexKind) (first, second SlotDef, ok bool) {
	switch kind {
	case Water:
		return SlotDef{Kind: string(Hydrogen)}, SlotDef{Kind: string(Oxygen)}, true
	case Diamond:
		return SlotDef{Kind: string(Carbon)}, SlotDef{Kind: string(Carbon)}, true
	case Life:
		return SlotDef{Kind: string(Water), Complex: true}, SlotDef{Kind: string(Carbon)}, true
	case Robot:
		return SlotDef{Kind: string(Silicon)}, SlotDef{Kind: string(Life), Complex: true}, true
	case Dolphin:
		return SlotDef{Kind: string(Water), Complex: true}, SlotDef{Kind: string(Life), Complex: true}, true
	case AIPartner:
		return SlotDef{Kind: string(Robot), Complex: true}, SlotDef{Kind: string(Diamond), Complex: true}, true
	}
	return SlotDef{}, SlotDef{}, false
}

// SlotDef describes one input slot of a combination recipe.
type SlotDef struct {
	Kind    string `json:"kind"`
	Complex bool   `json:"complex,omitempty"`
}

func pair(req CombineRequest, firstErr, secondErr error) (GenericResource, GenericResource, error) {
	if firstErr != nil {
		return GenericResource{}, GenericResource{}, fmt.Errorf("%s input 1: %w", req.Kind, firstErr)
	}
	if secondErr != nil {
		return GenericResource{}, GenericResource{}, fmt.Errorf("%s input 2: %w", req.Kind, secondErr)
	}
	return req.First, req.Second, nil
}

func basicSlot(g GenericResource, want BasicKind) error {
	if g.Basic == nil {
		return fmt.Errorf("expected basic %s, got %s", want, g)
	}
	if g.Basic.Kind != want {
		return fmt.Errorf("expected basic %s, got %s", want, g.Basic.Kind)
	}
	return nil
}

func complexSlot(g GenericResource, want ComplexKind) error {
	if g.Complex == nil {
		return fmt.Errorf("expected complex %s, got %s", want, g)
	}
	if g.Complex.Kind != want {
		return fmt.Errorf("expected complex %s, got %s", want, g.Complex.Kind)
	}
	return nil
}
