package planet

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"planetfall.ai/internal/protocol"
	"planetfall.ai/internal/sim/fairshare"
	"planetfall.ai/internal/sim/recipes"
	"planetfall.ai/internal/sim/resource"
)

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find repo root from %s", dir)
		}
		dir = parent
	}
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingLog struct {
	events []protocol.AdmissionEvent
}

func (r *recordingLog) LogDecision(ev protocol.AdmissionEvent) {
	r.events = append(r.events, ev)
}

func newTestPlanet(t *testing.T, cfg Config) (*Planet, *testClock, chan protocol.PlanetToOrchestrator) {
	t.Helper()
	catalog, err := recipes.Load(filepath.Join(findRepoRoot(t), "configs"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	orchOut := make(chan protocol.PlanetToOrchestrator, 64)
	p, err := New(cfg, catalog, orchOut, log.New(os.Stderr, "[test] ", 0))
	if err != nil {
		t.Fatalf("new planet: %v", err)
	}
	clk := &testClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p.SetClock(clk.now)
	return p, clk, orchOut
}

func sunray(t *testing.T, p *Planet) {
	t.Helper()
	out := p.HandleOrchestratorMsg(protocol.OrchestratorToPlanet{Type: protocol.TypeSunray})
	if out == nil || out.Type != protocol.TypeSunrayAck {
		t.Fatalf("sunray not acked: %+v", out)
	}
}

func generate(t *testing.T, p *Planet, explorerID string, kind resource.BasicKind) *resource.BasicResource {
	t.Helper()
	resp := p.HandleExplorerMsg(protocol.ExplorerToPlanet{
		Type:       protocol.TypeGenerateRequest,
		ExplorerID: explorerID,
		Resource:   kind,
	})
	if resp == nil || resp.Type != protocol.TypeGenerateResponse {
		t.Fatalf("unexpected generate response: %+v", resp)
	}
	return resp.Resource
}

func stateOf(t *testing.T, p *Planet) *protocol.StateReport {
	t.Helper()
	out := p.HandleOrchestratorMsg(protocol.OrchestratorToPlanet{Type: protocol.TypeStateRequest})
	if out == nil || out.Type != protocol.TypeStateReport || out.State == nil {
		t.Fatalf("unexpected state response: %+v", out)
	}
	return out.State
}

func TestSunrayChargesFirstEmptyCell(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{CellCapacity: 5})
	sunray(t, p)

	st := stateOf(t, p)
	if st.Charged != 1 {
		t.Fatalf("charged=%d, want 1", st.Charged)
	}
	want := []bool{true, false, false, false, false}
	for i := range want {
		if st.Cells[i] != want[i] {
			t.Fatalf("cells=%v, want %v", st.Cells, want)
		}
	}
}

func TestSunraySequenceChargesInOrder(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{CellCapacity: 5})
	for i := 0; i < 3; i++ {
		sunray(t, p)
	}
	st := stateOf(t, p)
	if st.Charged != 3 {
		t.Fatalf("charged=%d, want 3", st.Charged)
	}
	for i, cell := range st.Cells {
		if want := i < 3; cell != want {
			t.Fatalf("cell %d charged=%v, want %v", i, cell, want)
		}
	}
}

func TestGenerateWithoutEnergyReturnsNothing(t *testing.T) {
	for _, mode := range []fairshare.Mode{fairshare.ModeUnrestricted, fairshare.ModeFairShare} {
		p, _, _ := newTestPlanet(t, Config{LimitMode: mode})
		if res := generate(t, p, "E7", resource.Oxygen); res != nil {
			t.Fatalf("mode %s: got %+v from an uncharged planet", mode, res)
		}
	}
}

func TestGenerateConsumesOneCell(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{CellCapacity: 5})
	sunray(t, p)

	res := generate(t, p, "E7", resource.Oxygen)
	if res == nil || res.Kind != resource.Oxygen {
		t.Fatalf("got %+v, want oxygen", res)
	}
	if st := stateOf(t, p); st.Charged != 0 {
		t.Fatalf("charged=%d after generation, want 0", st.Charged)
	}
}

func TestFairShareSoloExplorerDrainsWholeBank(t *testing.T) {
	p, clk, _ := newTestPlanet(t, Config{
		CellCapacity: 10,
		LimitMode:    fairshare.ModeFairShare,
	})
	for i := 0; i < 10; i++ {
		sunray(t, p)
	}
	for i := 0; i < 10; i++ {
		if res := generate(t, p, "E1", resource.Silicon); res == nil {
			t.Fatalf("request %d denied for a lone explorer", i)
		}
		clk.advance(10 * time.Millisecond)
	}
	if st := stateOf(t, p); st.Charged != 0 {
		t.Fatalf("charged=%d, want 0", st.Charged)
	}
}

func TestFairShareLightUserGrantedUnderLoad(t *testing.T) {
	p, clk, _ := newTestPlanet(t, Config{
		CellCapacity: 6,
		LimitMode:    fairshare.ModeFairShare,
	})
	for i := 0; i < 6; i++ {
		sunray(t, p)
	}

	rec := &recordingLog{}
	p.SetDecisionLogger(rec)

	for i := 0; i < 3; i++ {
		generate(t, p, "A", resource.Oxygen)
		clk.advance(50 * time.Millisecond)
	}
	if res := generate(t, p, "B", resource.Carbon); res == nil {
		t.Fatal("interleaved light user denied")
	}
	clk.advance(50 * time.Millisecond)
	for i := 0; i < 2; i++ {
		generate(t, p, "A", resource.Oxygen)
		clk.advance(50 * time.Millisecond)
	}

	// Every verdict must agree with the published threshold.
	for _, ev := range rec.events {
		allowed := ev.Outcome == protocol.OutcomeGranted
		wantAllowed := ev.Active == 1 || ev.Score <= ev.AvgScore*ev.Tolerance
		if allowed != wantAllowed {
			t.Fatalf("outcome %s contradicts score=%.2f avg=%.2f tol=%.2f active=%d",
				ev.Outcome, ev.Score, ev.AvgScore, ev.Tolerance, ev.Active)
		}
	}
}

func TestFairShareDeniesHeavyUserUnderContention(t *testing.T) {
	p, clk, _ := newTestPlanet(t, Config{
		CellCapacity: 12,
		LimitMode:    fairshare.ModeFairShare,
	})
	for i := 0; i < 12; i++ {
		sunray(t, p)
	}

	rec := &recordingLog{}
	p.SetDecisionLogger(rec)

	// B and C establish contention, then A hammers.
	generate(t, p, "B", resource.Carbon)
	clk.advance(10 * time.Millisecond)
	generate(t, p, "C", resource.Carbon)
	clk.advance(10 * time.Millisecond)

	var denied, granted int
	for i := 0; i < 6; i++ {
		if res := generate(t, p, "A", resource.Oxygen); res == nil {
			denied++
		} else {
			granted++
		}
		clk.advance(10 * time.Millisecond)
	}
	if denied == 0 {
		t.Fatal("heavy user was never denied under three-way contention")
	}
	if granted == 0 {
		t.Fatal("heavy user never granted anything")
	}
	// Denials must leave the cell bank untouched.
	if st := stateOf(t, p); st.Charged != 12-2-granted {
		t.Fatalf("charged=%d, want %d (denied attempts must not drain cells)", st.Charged, 12-2-granted)
	}
	// And the light user is still welcome.
	if res := generate(t, p, "B", resource.Carbon); res == nil {
		t.Fatal("light user denied after heavy user throttled")
	}

	for _, ev := range rec.events {
		if ev.Outcome == protocol.OutcomeDeniedRateLimit && ev.ExplorerID != "A" {
			t.Fatalf("explorer %s rate limited, only A should be", ev.ExplorerID)
		}
	}
}

func TestJournalSeparatesDenialCauses(t *testing.T) {
	p, clk, _ := newTestPlanet(t, Config{
		CellCapacity: 12,
		LimitMode:    fairshare.ModeFairShare,
	})
	rec := &recordingLog{}
	p.SetDecisionLogger(rec)

	// Dry planet: the wire says "no resource", the journal says why.
	if res := generate(t, p, "A", resource.Oxygen); res != nil {
		t.Fatal("generated from a dry planet")
	}
	if got := rec.events[len(rec.events)-1].Outcome; got != protocol.OutcomeDeniedNoEnergy {
		t.Fatalf("outcome=%s, want DENIED_NO_ENERGY", got)
	}

	for i := 0; i < 12; i++ {
		sunray(t, p)
	}
	generate(t, p, "B", resource.Carbon)
	clk.advance(10 * time.Millisecond)
	generate(t, p, "C", resource.Carbon)
	clk.advance(10 * time.Millisecond)
	var sawRateLimit bool
	for i := 0; i < 6; i++ {
		generate(t, p, "A", resource.Oxygen)
		clk.advance(10 * time.Millisecond)
	}
	for _, ev := range rec.events {
		if ev.Outcome == protocol.OutcomeDeniedRateLimit {
			sawRateLimit = true
		}
		if !protocol.IsKnownOutcome(ev.Outcome) {
			t.Fatalf("unknown outcome %q", ev.Outcome)
		}
	}
	if !sawRateLimit {
		t.Fatal("no DENIED_RATE_LIMIT event recorded")
	}
}

func TestSupportedResourceQuery(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{})
	resp := p.HandleExplorerMsg(protocol.ExplorerToPlanet{
		Type:       protocol.TypeSupportedResourcesRequest,
		ExplorerID: "E1",
	})
	if resp == nil || resp.Type != protocol.TypeSupportedResourcesResponse {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Resources) != 4 {
		t.Fatalf("resources=%v, want all 4 basic kinds", resp.Resources)
	}
}

func TestSupportedCombinationQueryIsEmpty(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{})
	resp := p.HandleExplorerMsg(protocol.ExplorerToPlanet{
		Type:       protocol.TypeSupportedCombinationsRequest,
		ExplorerID: "E1",
	})
	if resp == nil || resp.Type != protocol.TypeSupportedCombinationsResponse {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Combinations) != 0 {
		t.Fatalf("combinations=%v, want none for a generator-only planet", resp.Combinations)
	}
}

func TestAvailableCellsQuery(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{CellCapacity: 5})
	sunray(t, p)
	sunray(t, p)

	resp := p.HandleExplorerMsg(protocol.ExplorerToPlanet{
		Type:       protocol.TypeAvailableCellsRequest,
		ExplorerID: "E1",
	})
	if resp == nil || resp.Type != protocol.TypeAvailableCellsResponse {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.AvailableCells != 2 {
		t.Fatalf("available=%d, want 2", resp.AvailableCells)
	}
}

func TestCombineAlwaysRefusedWithInputsIntact(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{})

	h := resource.FromBasic(resource.BasicResource{Kind: resource.Hydrogen, Units: 1})
	o := resource.FromBasic(resource.BasicResource{Kind: resource.Oxygen, Units: 1})
	resp := p.HandleExplorerMsg(protocol.ExplorerToPlanet{
		Type:       protocol.TypeCombineRequest,
		ExplorerID: "E1",
		Combine:    &resource.CombineRequest{Kind: resource.Water, First: h, Second: o},
	})
	if resp == nil || resp.Type != protocol.TypeCombineResponse {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Combine == nil || resp.Combine.Refusal == nil {
		t.Fatalf("combine was not refused: %+v", resp.Combine)
	}
	ref := resp.Combine.Refusal
	if ref.Reason == "" {
		t.Fatal("refusal carries no reason")
	}
	if ref.First.Basic == nil || ref.First.Basic.Kind != resource.Hydrogen {
		t.Fatalf("first input changed: %+v", ref.First)
	}
	if ref.Second.Basic == nil || ref.Second.Basic.Kind != resource.Oxygen {
		t.Fatalf("second input changed: %+v", ref.Second)
	}
}

func TestCombineMalformedShapeEchoesInputs(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{})

	// Swapped inputs: not a valid water shape, but nothing may be lost.
	o := resource.FromBasic(resource.BasicResource{Kind: resource.Oxygen, Units: 1})
	h := resource.FromBasic(resource.BasicResource{Kind: resource.Hydrogen, Units: 1})
	resp := p.HandleExplorerMsg(protocol.ExplorerToPlanet{
		Type:       protocol.TypeCombineRequest,
		ExplorerID: "E1",
		Combine:    &resource.CombineRequest{Kind: resource.Water, First: o, Second: h},
	})
	ref := resp.Combine.Refusal
	if ref.First.Basic.Kind != resource.Oxygen || ref.Second.Basic.Kind != resource.Hydrogen {
		t.Fatalf("echoed inputs changed: (%+v, %+v)", ref.First, ref.Second)
	}
}

func TestGenerateUnsupportedKindReturnsNothing(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{CellCapacity: 5})
	sunray(t, p)

	resp := p.HandleExplorerMsg(protocol.ExplorerToPlanet{
		Type:       protocol.TypeGenerateRequest,
		ExplorerID: "E1",
		Resource:   "PLUTONIUM",
	})
	if resp.Resource != nil {
		t.Fatalf("got %+v for an unknown kind", resp.Resource)
	}
	if st := stateOf(t, p); st.Charged != 1 {
		t.Fatalf("charged=%d, want 1 (bad request must not drain a cell)", st.Charged)
	}
}

func TestAsteroidProducesNoCountermeasure(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{CellCapacity: 5})
	sunray(t, p)

	if r := p.HandleAsteroid(); r != nil {
		t.Fatalf("generator-only planet built a rocket: %+v", r)
	}
	// A hazard leaves the cell bank alone.
	if st := stateOf(t, p); st.Charged != 1 {
		t.Fatalf("charged=%d after asteroid, want 1", st.Charged)
	}
}

func TestUnknownMessagesIgnored(t *testing.T) {
	p, _, _ := newTestPlanet(t, Config{})
	if out := p.HandleOrchestratorMsg(protocol.OrchestratorToPlanet{Type: "SOLAR_FLARE"}); out != nil {
		t.Fatalf("unknown orchestrator message answered: %+v", out)
	}
	if out := p.HandleExplorerMsg(protocol.ExplorerToPlanet{Type: "DANCE", ExplorerID: "E1"}); out != nil {
		t.Fatalf("unknown explorer message answered: %+v", out)
	}
}

func TestInvalidConfigFailsAtConstruction(t *testing.T) {
	catalog, err := recipes.Load(filepath.Join(findRepoRoot(t), "configs"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	orchOut := make(chan protocol.PlanetToOrchestrator, 1)
	_, err = New(Config{
		Generation: []resource.BasicKind{"PLUTONIUM"},
	}, catalog, orchOut, log.New(os.Stderr, "[test] ", 0))
	if err == nil {
		t.Fatal("planet accepted a generation kind with no recipe")
	}
}
