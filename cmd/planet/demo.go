package main

import (
	"context"
	"log"
	"time"

	"planetfall.ai/internal/protocol"
	"planetfall.ai/internal/sim/planet"
	"planetfall.ai/internal/sim/resource"
)

// runDemo plays a scripted orchestrator and two greedy-vs-polite
// explorers against the planet so a bare `-demo` run exercises the
// whole admission pipeline.
func runDemo(ctx context.Context, p *planet.Planet, logger *log.Logger) {
	// Sunrays on a steady beat.
	go func() {
		t := time.NewTicker(500 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				p.Orchestrator() <- protocol.OrchestratorToPlanet{Type: protocol.TypeSunray}
			}
		}
	}()

	request := func(explorerID string, kind resource.BasicKind) {
		reply := make(chan protocol.PlanetToExplorer, 1)
		select {
		case <-ctx.Done():
			return
		case p.Explorer() <- planet.ExplorerRequest{
			Msg: protocol.ExplorerToPlanet{
				Type:       protocol.TypeGenerateRequest,
				ExplorerID: explorerID,
				Resource:   kind,
			},
			Reply: reply,
		}:
		}
		select {
		case <-ctx.Done():
		case resp := <-reply:
			if resp.Resource != nil {
				logger.Printf("demo: %s got %s", explorerID, resp.Resource.Kind)
			} else {
				logger.Printf("demo: %s got nothing", explorerID)
			}
		}
	}

	// E1 hammers the planet; E2 asks politely.
	go func() {
		t := time.NewTicker(200 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				request("E1", resource.Oxygen)
			}
		}
	}()
	go func() {
		t := time.NewTicker(1200 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				request("E2", resource.Carbon)
			}
		}
	}()
}
