package main

import (
	"strings"
	"testing"

	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/sim/world"
)

var tri = []geo.Point{{}, {Lat: 0.001}, {Lng: 0.001}}

func TestChecker_CleanRun(t *testing.T) {
	c := newChecker()
	for _, e := range []world.JournalEntry{
		{Seq: 1, Kind: world.JournalJoin, PlayerID: "a"},
		{Seq: 2, Kind: world.JournalJoin, PlayerID: "b"},
		{Seq: 3, Kind: world.JournalConquest, PlayerID: "a", TerritoryID: 1, Path: tri},
		{Seq: 4, Kind: world.JournalConquest, PlayerID: "a", TerritoryID: 2, Path: tri},
		{Seq: 5, Kind: world.JournalTransfer, PlayerID: "b", PrevOwnerID: "a", TerritoryID: 1},
		{Seq: 6, Kind: world.JournalRejoin, PlayerID: "a"},
		{Seq: 7, Kind: world.JournalLeave, PlayerID: "a"},
	} {
		c.Apply(e)
	}
	if p := c.Problems(); len(p) != 0 {
		t.Fatalf("unexpected problems: %v", p)
	}
	s := c.Summary()
	if s.Runs != 1 || s.Territories != 2 || s.Transfers != 1 || s.Online != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if len(s.Owners) != 2 || s.Owners[0].Count != 1 || s.Owners[1].Count != 1 {
		t.Fatalf("unexpected owners: %+v", s.Owners)
	}
}

func TestChecker_DetectsViolations(t *testing.T) {
	c := newChecker()
	for _, e := range []world.JournalEntry{
		{Seq: 1, Kind: world.JournalJoin, PlayerID: "a"},
		{Seq: 2, Kind: world.JournalConquest, PlayerID: "a", TerritoryID: 2, Path: tri},
		{Seq: 4, Kind: world.JournalTransfer, PlayerID: "a", PrevOwnerID: "a", TerritoryID: 2},
		{Seq: 5, Kind: world.JournalTransfer, PlayerID: "b", PrevOwnerID: "c", TerritoryID: 2},
		{Seq: 6, Kind: world.JournalConquest, PlayerID: "a", TerritoryID: 3, Path: tri[:2]},
	} {
		c.Apply(e)
	}
	want := []string{"territory id 2 after 0", "sequence gap", "transferred to its owner", "journal says c", "has 2 points"}
	got := strings.Join(c.Problems(), "\n")
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Fatalf("missing %q in:\n%s", w, got)
		}
	}
}

func TestChecker_NewRunResetsIDs(t *testing.T) {
	c := newChecker()
	c.Apply(world.JournalEntry{Seq: 1, Kind: world.JournalJoin, PlayerID: "a"})
	c.Apply(world.JournalEntry{Seq: 2, Kind: world.JournalConquest, PlayerID: "a", TerritoryID: 1, Path: tri})
	c.Apply(world.JournalEntry{Seq: 1, Kind: world.JournalJoin, PlayerID: "a"})
	c.Apply(world.JournalEntry{Seq: 2, Kind: world.JournalConquest, PlayerID: "a", TerritoryID: 1, Path: tri})
	if p := c.Problems(); len(p) != 0 {
		t.Fatalf("unexpected problems: %v", p)
	}
	if s := c.Summary(); s.Runs != 2 || s.Territories != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
