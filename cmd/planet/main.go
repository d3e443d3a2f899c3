package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"planetfall.ai/internal/persistence/indexdb"
	"planetfall.ai/internal/persistence/journal"
	"planetfall.ai/internal/protocol"
	"planetfall.ai/internal/sim/fairshare"
	"planetfall.ai/internal/sim/planet"
	"planetfall.ai/internal/sim/recipes"
	"planetfall.ai/internal/sim/tuning"
	"planetfall.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address for the observer feed (default: tuning listen_addr)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the decision index db")
		demo       = flag.Bool("demo", false, "run a scripted orchestrator + explorers against the planet")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[planet] ", log.LstdFlags|log.Lmicroseconds)

	catalog, err := recipes.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	mode := fairshare.ModeUnrestricted
	if tune.LimitMode == "fair_share" {
		mode = fairshare.ModeFairShare
	}

	orchOut := make(chan protocol.PlanetToOrchestrator, 64)
	p, err := planet.New(planet.Config{
		ID:           tune.PlanetID,
		CellCapacity: tune.CellCapacity,
		LimitMode:    mode,
		FairShare: fairshare.Config{
			ContentionWindow: time.Duration(tune.FairShare.ContentionWindowMs) * time.Millisecond,
			DecayPerSecond:   tune.FairShare.DecayPerSecond,
			AllowedBurst:     tune.FairShare.AllowedBurst,
			RequestCost:      tune.FairShare.RequestCost,
		},
	}, catalog, orchOut, logger)
	if err != nil {
		logger.Fatalf("new planet: %v", err)
	}

	planetDir := filepath.Join(*dataDir, "planets", p.ID())
	_ = os.MkdirAll(planetDir, 0o755)

	jnl := journal.NewDecisionJournal(planetDir)
	defer jnl.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		dbPath := strings.TrimSpace(tune.IndexDB)
		if dbPath == "" {
			dbPath = filepath.Join(planetDir, "index", "decisions.db")
		}
		idx, err = indexdb.OpenSQLite(dbPath)
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, catalog, tune); err != nil {
			logger.Fatalf("index catalogs: %v", err)
		}
	}
	p.SetDecisionLogger(decisionFanout{journal: jnl, index: idx, log: logger})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := p.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("planet loop: %v", err)
		}
	}()

	// Drain orchestrator-bound traffic; in a full deployment the
	// orchestrator owns this channel.
	go func() {
		for out := range orchOut {
			if out.Type == protocol.TypeStateReport && out.State != nil {
				logger.Printf("state: charged=%d/%d", out.State.Charged, len(out.State.Cells))
			}
		}
	}()

	if *demo {
		go runDemo(ctx, p, logger)
	}

	listen := strings.TrimSpace(*addr)
	if listen == "" {
		listen = tune.ListenAddr
	}
	if listen == "" {
		listen = ":8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observe", ws.NewServer(p, logger).Handler())
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		logger.Printf("observer feed on ws://%s/v1/observe", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	p.Stop()
}

type decisionFanout struct {
	journal *journal.DecisionJournal
	index   *indexdb.SQLiteIndex
	log     *log.Logger
}

func (f decisionFanout) LogDecision(ev protocol.AdmissionEvent) {
	if err := f.journal.WriteDecision(ev); err != nil {
		f.log.Printf("journal: %v", err)
	}
	_ = f.index.WriteDecision(ev)
}
