package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"loopclaim.app/internal/sim/world"
)

const journalPrefix = "journal"

// Journal writes world journal entries as compressed JSONL.
type Journal struct{ w *JSONLZstdWriter }

func NewJournal(dataDir string) *Journal {
	return &Journal{w: NewJSONLZstdWriter(filepath.Join(dataDir, "journal"), journalPrefix)}
}

func (j *Journal) Record(e world.JournalEntry) error { return j.w.Write(e) }
func (j *Journal) Close() error                      { return j.w.Close() }

// JournalFiles lists the journal files under dataDir in write order.
func JournalFiles(dataDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, "journal", journalPrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadJournal decodes every entry under dataDir, oldest file first, and
// calls fn for each. It stops at the first error fn returns.
func ReadJournal(dataDir string, fn func(world.JournalEntry) error) error {
	files, err := JournalFiles(dataDir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := readJournalFile(path, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func readJournalFile(path string, fn func(world.JournalEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e world.JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
