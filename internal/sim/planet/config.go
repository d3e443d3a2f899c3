package planet

import (
	"planetfall.ai/internal/sim/fairshare"
	"planetfall.ai/internal/sim/resource"
)

type Config struct {
	ID           string
	CellCapacity int

	LimitMode fairshare.Mode
	FairShare fairshare.Config

	// Basic categories this planet generates and combination recipes
	// it offers. A generator-only planet leaves Combinations nil.
	Generation   []resource.BasicKind
	Combinations []resource.ComplexKind
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "P1"
	}
	if c.CellCapacity <= 0 {
		c.CellCapacity = 5
	}
	if c.LimitMode == "" {
		c.LimitMode = fairshare.ModeUnrestricted
	}
	if c.Generation == nil {
		c.Generation = resource.BasicKinds()
	}
}
