package main

import (
	"flag"
	"fmt"
	"os"

	persistlog "loopclaim.app/internal/persistence/log"
	"loopclaim.app/internal/sim/world"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory containing journal/")
		verbose = flag.Bool("v", false, "print every entry")
	)
	flag.Parse()

	c := newChecker()
	err := persistlog.ReadJournal(*dataDir, func(e world.JournalEntry) error {
		if *verbose {
			fmt.Printf("%6d %s %-11s player=%s territory=%d\n", e.Seq, e.Time.Format("15:04:05.000"), e.Kind, e.PlayerID, e.TerritoryID)
		}
		c.Apply(e)
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}

	sum := c.Summary()
	fmt.Printf("runs=%d entries=%d territories=%d transfers=%d online=%d\n",
		sum.Runs, sum.Entries, sum.Territories, sum.Transfers, sum.Online)
	for _, o := range sum.Owners {
		fmt.Printf("  owner=%s territories=%d\n", o.ID, o.Count)
	}
	if len(c.Problems()) > 0 {
		for _, p := range c.Problems() {
			fmt.Fprintln(os.Stderr, "FAIL:", p)
		}
		os.Exit(1)
	}
	fmt.Println("OK")
}
