package world

import (
	"time"

	"loopclaim.app/internal/geo"
)

type JournalKind string

const (
	JournalJoin       JournalKind = "join"
	JournalRejoin     JournalKind = "rejoin"
	JournalLeave      JournalKind = "leave"
	JournalConquest   JournalKind = "conquest"
	JournalTransfer   JournalKind = "transfer"
	JournalRaceStart  JournalKind = "race_start"
	JournalRaceCancel JournalKind = "race_cancel"
)

// JournalEntry is one domain mutation, offered to sinks after it was applied.
// Sinks never feed back into world state.
type JournalEntry struct {
	Seq  uint64      `json:"seq"`
	Time time.Time   `json:"time"`
	Kind JournalKind `json:"kind"`

	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Color      string `json:"color,omitempty"`

	TerritoryID   uint64      `json:"territoryId,omitempty"`
	TerritoryName string      `json:"territoryName,omitempty"`
	PrevOwnerID   string      `json:"prevOwnerId,omitempty"`
	Path          []geo.Point `json:"path,omitempty"`

	Mode string `json:"mode,omitempty"`
}

// JournalSink is called from the world loop and must not block for long.
type JournalSink interface {
	Record(e JournalEntry) error
}

// MultiJournal fans an entry out to every sink and returns the first error.
type MultiJournal []JournalSink

func (m MultiJournal) Record(e JournalEntry) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetJournal installs the sink. Call before Run.
func (w *World) SetJournal(s JournalSink) { w.journal = s }

func (w *World) record(e JournalEntry) {
	if w.journal == nil {
		return
	}
	w.journSeq++
	e.Seq = w.journSeq
	e.Time = time.Now().UTC()
	if err := w.journal.Record(e); err != nil {
		w.log.Printf("journal %s seq=%d: %v", e.Kind, e.Seq, err)
	}
}
