package main

import (
	"fmt"
	"sort"

	"loopclaim.app/internal/sim/world"
)

// checker replays journal entries and verifies the ownership invariants of
// each run. A run starts whenever Seq resets to 1.
type checker struct {
	runs     int
	entries  int
	lastSeq  uint64
	problems []string

	// Per run.
	lastTerritory uint64
	owner         map[uint64]string
	online        map[string]bool
	transfers     int
}

type ownerCount struct {
	ID    string
	Count int
}

type summary struct {
	Runs        int
	Entries     int
	Territories int
	Transfers   int
	Online      int
	Owners      []ownerCount
}

func newChecker() *checker {
	return &checker{owner: map[uint64]string{}, online: map[string]bool{}}
}

func (c *checker) failf(e world.JournalEntry, format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf("run %d seq %d (%s): ", c.runs, e.Seq, e.Kind)+fmt.Sprintf(format, args...))
}

func (c *checker) Apply(e world.JournalEntry) {
	c.entries++
	if e.Seq == 1 || c.runs == 0 {
		c.runs++
		c.lastSeq = 0
		c.lastTerritory = 0
		c.owner = map[uint64]string{}
		c.online = map[string]bool{}
		c.transfers = 0
	}
	if e.Seq != c.lastSeq+1 {
		c.failf(e, "sequence gap after %d", c.lastSeq)
	}
	c.lastSeq = e.Seq

	switch e.Kind {
	case world.JournalJoin:
		if c.online[e.PlayerID] {
			c.failf(e, "player %s joined twice without rejoin", e.PlayerID)
		}
		c.online[e.PlayerID] = true
	case world.JournalRejoin:
		if !c.online[e.PlayerID] {
			c.failf(e, "rejoin of unknown player %s", e.PlayerID)
		}
	case world.JournalLeave:
		if !c.online[e.PlayerID] {
			c.failf(e, "leave of unknown player %s", e.PlayerID)
		}
		delete(c.online, e.PlayerID)
	case world.JournalConquest:
		if e.TerritoryID != c.lastTerritory+1 {
			c.failf(e, "territory id %d after %d", e.TerritoryID, c.lastTerritory)
		}
		if len(e.Path) < 3 {
			c.failf(e, "territory %d has %d points", e.TerritoryID, len(e.Path))
		}
		if !c.online[e.PlayerID] {
			c.failf(e, "conquest by offline player %s", e.PlayerID)
		}
		c.lastTerritory = e.TerritoryID
		c.owner[e.TerritoryID] = e.PlayerID
	case world.JournalTransfer:
		prev, ok := c.owner[e.TerritoryID]
		switch {
		case !ok:
			c.failf(e, "transfer of unknown territory %d", e.TerritoryID)
		case prev != e.PrevOwnerID:
			c.failf(e, "territory %d owned by %s, journal says %s", e.TerritoryID, prev, e.PrevOwnerID)
		case prev == e.PlayerID:
			c.failf(e, "territory %d transferred to its owner", e.TerritoryID)
		}
		c.owner[e.TerritoryID] = e.PlayerID
		c.transfers++
	}
}

func (c *checker) Problems() []string { return c.problems }

// Summary describes the last run.
func (c *checker) Summary() summary {
	counts := map[string]int{}
	for _, o := range c.owner {
		counts[o]++
	}
	owners := make([]ownerCount, 0, len(counts))
	for id, n := range counts {
		owners = append(owners, ownerCount{ID: id, Count: n})
	}
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Count != owners[j].Count {
			return owners[i].Count > owners[j].Count
		}
		return owners[i].ID < owners[j].ID
	})
	return summary{
		Runs:        c.runs,
		Entries:     c.entries,
		Territories: len(c.owner),
		Transfers:   c.transfers,
		Online:      len(c.online),
		Owners:      owners,
	}
}
