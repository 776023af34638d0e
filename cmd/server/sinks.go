package main

import (
	"log"
	"path/filepath"
	"strings"

	"loopclaim.app/internal/persistence/indexdb"
	persistlog "loopclaim.app/internal/persistence/log"
	"loopclaim.app/internal/sim/tuning"
	"loopclaim.app/internal/sim/world"
	"loopclaim.app/internal/transport/natsbus"
)

type sinkConfig struct {
	RunID          string
	DataDir        string
	DisableJournal bool
	DisableIndex   bool
	NATSURL        string
	NATSSubject    string
}

// runtimeSinks are the optional journal consumers. None of them feed back
// into the world.
type runtimeSinks struct {
	journal *persistlog.Journal
	index   *indexdb.SQLiteIndex
	nats    *natsbus.Publisher
	log     *log.Logger
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "history.sqlite")
}

func openSinks(cfg sinkConfig, tune tuning.Tuning, logger *log.Logger) (*runtimeSinks, error) {
	s := &runtimeSinks{log: logger}
	if !cfg.DisableJournal {
		s.journal = persistlog.NewJournal(cfg.DataDir)
	}
	if !cfg.DisableIndex {
		idx, err := indexdb.OpenSQLite(indexPath(cfg.DataDir))
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := idx.BeginRun(cfg.RunID, tune); err != nil {
			logger.Printf("index: begin run: %v", err)
		}
		s.index = idx
	}
	if u := strings.TrimSpace(cfg.NATSURL); u != "" {
		p, err := natsbus.Connect(u, cfg.NATSSubject, logger)
		if err != nil {
			// The bus is optional; the game runs without it.
			logger.Printf("nats disabled: %v", err)
		} else {
			s.nats = p
		}
	}
	return s, nil
}

// Journal returns the enabled sinks as one world.JournalSink.
func (s *runtimeSinks) Journal() world.JournalSink {
	var m world.MultiJournal
	if s.journal != nil {
		m = append(m, s.journal)
	}
	if s.index != nil {
		m = append(m, s.index)
	}
	if s.nats != nil {
		m = append(m, s.nats)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func (s *runtimeSinks) Close() {
	if s == nil {
		return
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.log.Printf("journal close: %v", err)
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.log.Printf("index close: %v", err)
		}
	}
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			s.log.Printf("nats close: %v", err)
		}
	}
}
