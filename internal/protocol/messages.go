package protocol

import "planetfall.ai/internal/sim/resource"

// SUNRAY / ASTEROID / STATE_REQUEST (orchestrator -> planet)
type OrchestratorToPlanet struct {
	Type string `json:"type"`
}

// SUNRAY_ACK / STATE_REPORT (planet -> orchestrator)
type PlanetToOrchestrator struct {
	Type     string       `json:"type"`
	PlanetID string       `json:"planet_id"`
	State    *StateReport `json:"state,omitempty"`
}

// StateReport is a read-only snapshot of the planet's cell bank.
type StateReport struct {
	PlanetID string `json:"planet_id"`
	Cells    []bool `json:"cells"`
	Charged  int    `json:"charged"`
}

// Explorer -> planet. Exactly the fields of the matching request type
// are set: Resource for GENERATE_REQUEST, Combine for COMBINE_REQUEST.
type ExplorerToPlanet struct {
	Type       string                   `json:"type"`
	ExplorerID string                   `json:"explorer_id"`
	Resource   resource.BasicKind       `json:"resource,omitempty"`
	Combine    *resource.CombineRequest `json:"combine,omitempty"`
}

// Planet -> explorer. For GENERATE_RESPONSE a nil Resource means "no
// resource". The shape is the same whether the bank was empty or the
// request was rate limited, and explorers cannot tell the two apart.
type PlanetToExplorer struct {
	Type           string                  `json:"type"`
	Resources      []resource.BasicKind    `json:"resources,omitempty"`
	Combinations   []resource.ComplexKind  `json:"combinations,omitempty"`
	Resource       *resource.BasicResource `json:"resource,omitempty"`
	Combine        *CombineResult          `json:"combine,omitempty"`
	AvailableCells int                     `json:"available_cells,omitempty"`
}

// CombineResult carries either the combined output or a structured
// refusal. A refusal is an expected outcome, not an error: the two
// original inputs come back intact so the explorer can retry them
// elsewhere.
type CombineResult struct {
	Complex *resource.ComplexResource `json:"complex,omitempty"`
	Refusal *CombineRefusal           `json:"refusal,omitempty"`
}

type CombineRefusal struct {
	Reason string                   `json:"reason"`
	First  resource.GenericResource `json:"first"`
	Second resource.GenericResource `json:"second"`
}

// AdmissionEvent is the observer/journal view of one generation
// attempt. Unlike the explorer-facing response, it names the real
// outcome, including which of the two "no resource" causes applied.
type AdmissionEvent struct {
	Type       string  `json:"type"`
	PlanetID   string  `json:"planet_id"`
	ExplorerID string  `json:"explorer_id"`
	Resource   string  `json:"resource,omitempty"`
	Outcome    string  `json:"outcome"`
	Score      float64 `json:"score,omitempty"`
	AvgScore   float64 `json:"avg_score,omitempty"`
	Tolerance  float64 `json:"tolerance,omitempty"`
	Active     int     `json:"active,omitempty"`
	UnixMs     int64   `json:"unix_ms"`
}
