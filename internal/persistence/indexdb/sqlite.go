package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"loopclaim.app/internal/sim/tuning"
	"loopclaim.app/internal/sim/world"
)

// SQLiteIndex is a queryable read-model of the world journal. Writes are
// queued and applied by one goroutine; the journal files stay the source
// of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan world.JournalEntry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropped   atomic.Uint64
	written   atomic.Uint64
	failed    atomic.Uint64
	commitMax time.Duration
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
	Failed        uint64 `json:"failed"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	s, err := open(path)
	if err != nil {
		return nil, err
	}
	s.ch = make(chan world.JournalEntry, 65536)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenSQLiteQuery opens an existing index for queries only.
func OpenSQLiteQuery(path string) (*SQLiteIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return open(path)
}

func open(path string) (*SQLiteIndex, error) {
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
	return &SQLiteIndex{db: db, commitMax: 500 * time.Millisecond}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
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
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			player_id TEXT,
			player_name TEXT,
			territory_id INTEGER,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_player ON events(player_id, at);`,
		`CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);`,
		`CREATE TABLE IF NOT EXISTS territories (
			run_id TEXT NOT NULL,
			id INTEGER NOT NULL,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			owner_name TEXT NOT NULL,
			color TEXT NOT NULL,
			points INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (run_id, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_territories_owner ON territories(owner_id);`,
		`CREATE TABLE IF NOT EXISTS transfers (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			territory_id INTEGER NOT NULL,
			from_owner TEXT NOT NULL,
			to_owner TEXT NOT NULL,
			to_name TEXT NOT NULL,
			at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
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
		if s.ch != nil {
			close(s.ch)
			s.wg.Wait()
		}
		err = s.db.Close()
	})
	return err
}

// Record queues e. It never blocks the world loop: a full queue drops.
func (s *SQLiteIndex) Record(e world.JournalEntry) error {
	if s == nil || s.ch == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		Failed:        s.failed.Load(),
	}
}

// BeginRun tags every later row with runID and stores the tuning the run
// uses. Territory ids restart at 1 on every process start, so rows are
// keyed by run.
func (s *SQLiteIndex) BeginRun(runID string, tune tuning.Tuning) error {
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows := [][2]string{
		{"schema_version", "1"},
		{"run_id", runID},
		{"run_started_at", now},
		{"tuning", string(b)},
		{"tuning_digest", hex.EncodeToString(sum[:])},
	}
	for _, kv := range rows {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) runID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key='run_id'`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	run, _ := s.runID(ctx)

	var (
		tx          *sql.Tx
		opCount     int
		commitEvery = 500
	)
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.failed.Add(uint64(opCount))
		} else {
			s.written.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.failed.Add(uint64(opCount) + 1)
		tx = nil
		opCount = 0
	}

	ticker := time.NewTicker(s.commitMax)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			if e.Kind == "" {
				continue
			}
			if tx == nil {
				txx, err := s.db.BeginTx(ctx, nil)
				if err != nil {
					s.failed.Add(1)
					continue
				}
				tx = txx
				if id, err := s.runIDTx(tx); err == nil && id != "" {
					run = id
				}
			}
			if err := apply(tx, run, e); err != nil {
				rollback()
				continue
			}
			opCount++
			if opCount >= commitEvery {
				commit()
			}
		case <-ticker.C:
			commit()
		}
	}
}

func (s *SQLiteIndex) runIDTx(tx *sql.Tx) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT value FROM meta WHERE key='run_id'`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func apply(tx *sql.Tx, run string, e world.JournalEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	at := e.Time.UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO events(run_id,seq,at,kind,player_id,player_name,territory_id,raw_json) VALUES(?,?,?,?,?,?,?,?)`,
		run, int64(e.Seq), at, string(e.Kind), e.PlayerID, e.PlayerName, int64(e.TerritoryID), string(raw),
	); err != nil {
		return err
	}

	switch e.Kind {
	case world.JournalConquest:
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO territories(run_id,id,name,owner_id,owner_name,color,points,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?,?)`,
			run, int64(e.TerritoryID), e.TerritoryName, e.PlayerID, e.PlayerName, e.Color, len(e.Path), at, at,
		)
	case world.JournalTransfer:
		if _, err = tx.Exec(
			`UPDATE territories SET owner_id=?, owner_name=?, color=?, updated_at=? WHERE run_id=? AND id=?`,
			e.PlayerID, e.PlayerName, e.Color, at, run, int64(e.TerritoryID),
		); err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO transfers(run_id,seq,territory_id,from_owner,to_owner,to_name,at) VALUES(?,?,?,?,?,?,?)`,
			run, int64(e.Seq), int64(e.TerritoryID), e.PrevOwnerID, e.PlayerID, e.PlayerName, at,
		)
	}
	return err
}
