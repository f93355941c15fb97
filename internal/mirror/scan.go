package mirror

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
)

// indexLine is one line of a package's index file: one JSON object per
// published version, newline-delimited, oldest first.
type indexLine struct {
	Name   string `json:"name"`
	Vers   string `json:"vers"`
	Yanked bool   `json:"yanked"`
}

// ScanIndex walks a mirror's on-disk index directory (sharded with the
// same two-character-prefix scheme as the tarball layout) and returns
// every (name, version, yanked) entry it finds, across every package's
// index file. Called once per Orchestrator run to populate a fresh Cache.
func ScanIndex(indexRoot string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(indexRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		lines, err := readIndexFile(path)
		if err != nil {
			return err
		}
		entries = append(entries, lines...)
		return nil
	})
	if err != nil {
		return nil, reeveserrors.Store("failed to scan mirror index directory", err)
	}
	return entries, nil
}

func readIndexFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var il indexLine
		if err := json.Unmarshal(line, &il); err != nil {
			continue // a malformed line in one package's index doesn't abort the whole scan
		}
		if il.Name == "" || il.Vers == "" {
			continue
		}
		entries = append(entries, Entry{Name: il.Name, Version: il.Vers, Yanked: il.Yanked})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// BuildCache scans indexRoot and returns a freshly populated Cache ready
// for LatestNonYanked queries.
func BuildCache(indexRoot string) (*Cache, error) {
	entries, err := ScanIndex(indexRoot)
	if err != nil {
		return nil, err
	}
	c, err := Open()
	if err != nil {
		return nil, err
	}
	if err := c.InsertBatch(entries); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
