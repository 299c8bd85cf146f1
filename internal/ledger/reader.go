package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"main/internal/schema"
)

// ReadJournal loads all trades from journal segments in a directory, in
// segment order. Used to rebuild the ledger after a restart.
func ReadJournal(dir, filePrefix string) ([]schema.Trade, error) {
	if filePrefix == "" {
		filePrefix = defaultFilePrefix
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, filePrefix+"-") && strings.HasSuffix(name, ".ndjson") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var trades []schema.Trade
	for _, name := range names {
		segTrades, err := readSegment(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read segment %s: %w", name, err)
		}
		trades = append(trades, segTrades...)
	}
	return trades, nil
}

func readSegment(path string) ([]schema.Trade, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var trades []schema.Trade
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var t schema.Trade
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades = append(trades, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return trades, nil
}
