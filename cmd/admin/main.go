package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"loopclaim.app/internal/persistence/indexdb"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "history":
			historyCmd(os.Args[2:])
			return
		case "leaderboard":
			leaderboardCmd(os.Args[2:])
			return
		case "transfers":
			transfersCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <history|leaderboard|transfers|state> [flags]")
	os.Exit(2)
}

func openIndex(dataDir string) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLiteQuery(filepath.Join(dataDir, "index", "history.sqlite"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	return idx
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func historyCmd(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 50, "max events (newest first)")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := idx.History(ctx, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "history:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		line := fmt.Sprintf("%6d %s %-11s", r.Seq, r.At, r.Kind)
		if r.PlayerID != "" {
			line += fmt.Sprintf(" player=%s(%s)", r.PlayerID, r.PlayerName)
		}
		if r.TerritoryID != 0 {
			line += fmt.Sprintf(" territory=%d", r.TerritoryID)
		}
		fmt.Println(line)
	}
}

func leaderboardCmd(args []string) {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 20, "max rows")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := idx.Leaderboard(ctx, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "leaderboard:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(rows)
		return
	}
	for i, r := range rows {
		fmt.Printf("%3d. %-24s %4d  (%s)\n", i+1, r.OwnerName, r.Territories, r.OwnerID)
	}
}

func transfersCmd(args []string) {
	fs := flag.NewFlagSet("transfers", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	territoryID := fs.Uint64("territory", 0, "territory id (required)")
	_ = fs.Parse(args)

	if *territoryID == 0 {
		fmt.Fprintln(os.Stderr, "missing -territory")
		os.Exit(2)
	}
	idx := openIndex(*dataDir)
	defer idx.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := idx.TerritoryTransfers(ctx, *territoryID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transfers:", err)
		os.Exit(1)
	}
	printJSON(rows)
}
