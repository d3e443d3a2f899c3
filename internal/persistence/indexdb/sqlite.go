// Package indexdb keeps a queryable SQLite index of the planet's
// admission decisions. The compressed JSONL journal remains the source
// of truth; this index exists so operators can ask questions like
// "how often was explorer E7 denied" without scanning journals.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"planetfall.ai/internal/protocol"
	"planetfall.ai/internal/sim/recipes"
	"planetfall.ai/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan protocol.AdmissionEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// High buffer: bursty request storms must not stall the planet.
		ch: make(chan protocol.AdmissionEvent, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			unix_ms INTEGER NOT NULL,
			planet_id TEXT NOT NULL,
			explorer_id TEXT NOT NULL,
			resource TEXT,
			outcome TEXT NOT NULL,
			score REAL NOT NULL,
			avg_score REAL NOT NULL,
			tolerance REAL NOT NULL,
			active INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_explorer ON decisions(explorer_id, unix_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome, unix_ms);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteDecision queues one decision for indexing. Never blocks: if the
// indexer falls behind, entries are dropped here and survive only in
// the JSONL journal.
func (s *SQLiteIndex) WriteDecision(ev protocol.AdmissionEvent) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- ev:
	default:
	}
	return nil
}

// UpsertCatalogs stores the recipe catalog and applied tuning so a
// decision row can always be traced back to the exact configuration
// that produced it.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cat *recipes.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "generation.json")); err == nil {
			rows = append(rows, kv{name: "generation", digest: cat.Generation.Digest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "combinations.json")); err == nil {
			rows = append(rows, kv{name: "combinations", digest: cat.Combinations.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		rows = append(rows, kv{name: "tuning", digest: "", json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ExplorerStats is the per-explorer grant/deny tally.
type ExplorerStats struct {
	ExplorerID string
	Granted    int
	DeniedRate int
	DeniedDry  int
}

func (s *SQLiteIndex) QueryExplorerStats(ctx context.Context, explorerID string) (ExplorerStats, error) {
	out := ExplorerStats{ExplorerID: explorerID}
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM decisions WHERE explorer_id = ? GROUP BY outcome`, explorerID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return out, err
		}
		switch outcome {
		case protocol.OutcomeGranted:
			out.Granted = n
		case protocol.OutcomeDeniedRateLimit:
			out.DeniedRate = n
		case protocol.OutcomeDeniedNoEnergy:
			out.DeniedDry = n
		}
	}
	return out, rows.Err()
}

// Flush blocks until every queued decision has been committed. Test
// helper; production code just lets the writer drain on Close.
func (s *SQLiteIndex) Flush() {
	for {
		if len(s.ch) == 0 {
			// One more round-trip so the in-flight entry commits too.
			time.Sleep(20 * time.Millisecond)
			if len(s.ch) == 0 {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *SQLiteIndex) loop() {
	insert, _ := s.db.Prepare(`INSERT INTO decisions(unix_ms,planet_id,explorer_id,resource,outcome,score,avg_score,tolerance,active,raw_json)
		VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx          *sql.Tx
		opCount     int
		lastCommit  = time.Now()
		commitEvery = 500
		commitWait  = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(context.Background(), nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for ev := range s.ch {
		begin()
		if tx == nil || insert == nil {
			continue
		}
		raw, _ := json.Marshal(ev)
		if _, err := tx.Stmt(insert).Exec(
			ev.UnixMs,
			ev.PlanetID,
			ev.ExplorerID,
			ev.Resource,
			ev.Outcome,
			ev.Score,
			ev.AvgScore,
			ev.Tolerance,
			ev.Active,
			string(raw),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitWait {
			commit()
		} else if len(s.ch) == 0 {
			// Nothing queued behind us: commit now so readers see it.
			commit()
		}
	}

	commit()
}
