package planet

import (
	"context"
	"encoding/json"

	"planetfall.ai/internal/protocol"
)

// Run is the planet's event loop: it delivers inbound messages to the
// handlers one at a time, so handler code never sees concurrent access.
// It returns when the context is cancelled or Stop is called; after
// that no further message is processed.
func (p *Planet) Run(ctx context.Context) error {
	p.log.Printf("planet %s: started (mode=%s, cells=%d)", p.cfg.ID, p.limiter.Mode(), p.cells.Count())
	defer p.log.Printf("planet %s: stopped", p.cfg.ID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil
		case msg := <-p.orchestrator:
			if msg.Type == protocol.TypeAsteroid {
				// No ack and, for this variant, no rocket either.
				p.HandleAsteroid()
				continue
			}
			if out := p.HandleOrchestratorMsg(msg); out != nil {
				p.orchOut <- *out
			}
			p.publishState()
		case req := <-p.explorer:
			if resp := p.HandleExplorerMsg(req.Msg); resp != nil {
				req.Reply <- *resp
			}
			p.publishState()
		case j := <-p.observerJoin:
			p.observers[j.id] = j.out
			p.publishState()
		case id := <-p.observerLeave:
			delete(p.observers, id)
		}
	}
}

// Stop signals the run loop to exit. Safe to call once.
func (p *Planet) Stop() { close(p.stop) }

// ObserverJoin registers a read-only observer and returns its feed.
func (p *Planet) ObserverJoin(id string) <-chan []byte {
	out := make(chan []byte, 64)
	p.observerJoin <- observerReq{id: id, out: out}
	return out
}

func (p *Planet) ObserverLeave(id string) {
	p.observerLeave <- id
}

func (p *Planet) publishState() {
	if len(p.observers) == 0 {
		return
	}
	rep := p.stateReport()
	p.broadcast(protocol.PlanetToOrchestrator{
		Type:     protocol.TypeStateReport,
		PlanetID: p.cfg.ID,
		State:    &rep,
	})
}

func (p *Planet) broadcast(v any) {
	if len(p.observers) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, ch := range p.observers {
		sendLatest(ch, b)
	}
}

// sendLatest delivers b without ever blocking the handler goroutine:
// when an observer's buffer is full the oldest message is dropped.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
