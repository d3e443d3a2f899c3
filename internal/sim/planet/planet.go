// Package planet is the decision-making core of one resource-producing
// planet: it routes orchestrator and explorer messages, charges and
// drains the cell bank, and puts every generation attempt through the
// fair-share limiter.
//
// All handlers run on a single goroutine (the Run loop); the package
// does no locking of its own.
package planet

import (
	"fmt"
	"log"
	"time"

	"planetfall.ai/internal/protocol"
	"planetfall.ai/internal/sim/cells"
	"planetfall.ai/internal/sim/fairshare"
	"planetfall.ai/internal/sim/recipes"
	"planetfall.ai/internal/sim/resource"
)

const combineRefusalReason = "this planet type cannot combine resources"

// Rocket is an asteroid countermeasure. Generator-only planets never
// build one; the type exists so the hazard handler has an honest
// signature shared with variants that do.
type Rocket struct {
	PlanetID string `json:"planet_id"`
}

// DecisionLogger receives one event per generation attempt. The planet
// calls it inline from the handler goroutine, so implementations must
// not block.
type DecisionLogger interface {
	LogDecision(protocol.AdmissionEvent)
}

// ExplorerRequest pairs an explorer message with its reply channel.
// Reply must have capacity for one message.
type ExplorerRequest struct {
	Msg   protocol.ExplorerToPlanet
	Reply chan protocol.PlanetToExplorer
}

type Planet struct {
	cfg Config
	log *log.Logger

	cells      *cells.Store
	generator  *recipes.Generator
	combinator *recipes.Combinator
	limiter    *fairshare.Limiter

	orchestrator chan protocol.OrchestratorToPlanet
	orchOut      chan<- protocol.PlanetToOrchestrator
	explorer     chan ExplorerRequest

	observerJoin  chan observerReq
	observerLeave chan string
	observers     map[string]chan []byte

	stop    chan struct{}
	stopped chan struct{}

	decisionLog DecisionLogger
	now         func() time.Time
}

type observerReq struct {
	id  string
	out chan []byte
}

// New builds a planet from its catalog and configuration. Invalid
// configuration (a generation kind with no recipe, a zero cell bank)
// fails here, at startup, never at request time.
func New(cfg Config, catalog *recipes.Catalog, orchOut chan<- protocol.PlanetToOrchestrator, logger *log.Logger) (*Planet, error) {
	cfg.applyDefaults()

	store, err := cells.NewStore(cfg.CellCapacity)
	if err != nil {
		return nil, err
	}
	gen, err := recipes.NewGenerator(catalog, cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("planet %s: %w", cfg.ID, err)
	}
	comb, err := recipes.NewCombinator(catalog, cfg.Combinations)
	if err != nil {
		return nil, fmt.Errorf("planet %s: %w", cfg.ID, err)
	}

	return &Planet{
		cfg:           cfg,
		log:           logger,
		cells:         store,
		generator:     gen,
		combinator:    comb,
		limiter:       fairshare.New(cfg.LimitMode, cfg.FairShare),
		orchestrator:  make(chan protocol.OrchestratorToPlanet, 64),
		orchOut:       orchOut,
		explorer:      make(chan ExplorerRequest, 256),
		observerJoin:  make(chan observerReq, 8),
		observerLeave: make(chan string, 8),
		observers:     map[string]chan []byte{},
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
		now:           time.Now,
	}, nil
}

func (p *Planet) ID() string { return p.cfg.ID }

func (p *Planet) Orchestrator() chan<- protocol.OrchestratorToPlanet { return p.orchestrator }
func (p *Planet) Explorer() chan<- ExplorerRequest                   { return p.explorer }

func (p *Planet) SetDecisionLogger(l DecisionLogger) { p.decisionLog = l }

// SetClock swaps the time source for the planet and its limiter.
func (p *Planet) SetClock(now func() time.Time) {
	p.now = now
	p.limiter.SetClock(now)
}

// HandleOrchestratorMsg processes one orchestrator message and shapes
// the reply, if the message kind warrants one.
func (p *Planet) HandleOrchestratorMsg(msg protocol.OrchestratorToPlanet) *protocol.PlanetToOrchestrator {
	switch msg.Type {
	case protocol.TypeSunray:
		// A sunray against a full bank is simply lost.
		p.cells.Charge()
		return &protocol.PlanetToOrchestrator{
			Type:     protocol.TypeSunrayAck,
			PlanetID: p.cfg.ID,
		}
	case protocol.TypeStateRequest:
		rep := p.stateReport()
		return &protocol.PlanetToOrchestrator{
			Type:     protocol.TypeStateReport,
			PlanetID: p.cfg.ID,
			State:    &rep,
		}
	}
	return nil
}

// HandleAsteroid is the hazard handler. A generator-only planet cannot
// build rockets, so the countermeasure is always absent. That is the
// permanent policy of this variant, not a failure.
func (p *Planet) HandleAsteroid() *Rocket {
	return nil
}

// HandleExplorerMsg processes one explorer message and shapes the
// matching response variant.
func (p *Planet) HandleExplorerMsg(msg protocol.ExplorerToPlanet) *protocol.PlanetToExplorer {
	switch msg.Type {
	case protocol.TypeSupportedResourcesRequest:
		return &protocol.PlanetToExplorer{
			Type:      protocol.TypeSupportedResourcesResponse,
			Resources: p.generator.AvailableKinds(),
		}
	case protocol.TypeSupportedCombinationsRequest:
		return &protocol.PlanetToExplorer{
			Type:         protocol.TypeSupportedCombinationsResponse,
			Combinations: p.combinator.AvailableRecipes(),
		}
	case protocol.TypeGenerateRequest:
		return p.handleGenerate(msg)
	case protocol.TypeCombineRequest:
		return p.handleCombine(msg)
	case protocol.TypeAvailableCellsRequest:
		return &protocol.PlanetToExplorer{
			Type:           protocol.TypeAvailableCellsResponse,
			AvailableCells: p.cells.ChargedCount(),
		}
	}
	return nil
}

func (p *Planet) handleGenerate(msg protocol.ExplorerToPlanet) *protocol.PlanetToExplorer {
	resp := &protocol.PlanetToExplorer{Type: protocol.TypeGenerateResponse}

	kind, err := resource.ParseBasicKind(string(msg.Resource))
	if err != nil || !p.generator.Supports(kind) {
		p.log.Printf("planet %s: generate request for unsupported kind %q from %s", p.cfg.ID, msg.Resource, msg.ExplorerID)
		return resp
	}

	cell, ok := p.cells.FirstCharged()
	if !ok {
		p.logDecision(msg, protocol.OutcomeDeniedNoEnergy, fairshare.Decision{ExplorerID: msg.ExplorerID})
		return resp
	}

	dec := p.limiter.Admit(msg.ExplorerID)
	if !dec.Allowed {
		// The cell stays charged for whoever is admitted next.
		p.logDecision(msg, protocol.OutcomeDeniedRateLimit, dec)
		return resp
	}

	res := p.generator.Synthesize(kind, cell)
	resp.Resource = &res
	p.logDecision(msg, protocol.OutcomeGranted, dec)
	return resp
}

func (p *Planet) handleCombine(msg protocol.ExplorerToPlanet) *protocol.PlanetToExplorer {
	resp := &protocol.PlanetToExplorer{Type: protocol.TypeCombineResponse}
	if msg.Combine == nil {
		return resp
	}

	first, second, err := resource.Decompose(*msg.Combine)
	if err != nil {
		// Malformed shape: echo the inputs exactly as submitted so
		// nothing is lost.
		p.log.Printf("planet %s: combine request from %s: %v", p.cfg.ID, msg.ExplorerID, err)
		first, second = msg.Combine.First, msg.Combine.Second
	}
	resp.Combine = &protocol.CombineResult{
		Refusal: &protocol.CombineRefusal{
			Reason: combineRefusalReason,
			First:  first,
			Second: second,
		},
	}
	return resp
}

func (p *Planet) stateReport() protocol.StateReport {
	return protocol.StateReport{
		PlanetID: p.cfg.ID,
		Cells:    p.cells.Snapshot(),
		Charged:  p.cells.ChargedCount(),
	}
}

func (p *Planet) logDecision(msg protocol.ExplorerToPlanet, outcome string, dec fairshare.Decision) {
	ev := protocol.AdmissionEvent{
		Type:       protocol.TypeAdmission,
		PlanetID:   p.cfg.ID,
		ExplorerID: msg.ExplorerID,
		Resource:   string(msg.Resource),
		Outcome:    outcome,
		Score:      dec.Score,
		AvgScore:   dec.AvgScore,
		Tolerance:  dec.Tolerance,
		Active:     dec.Active,
		UnixMs:     p.now().UnixMilli(),
	}
	if p.decisionLog != nil {
		p.decisionLog.LogDecision(ev)
	}
	p.broadcast(ev)
}
