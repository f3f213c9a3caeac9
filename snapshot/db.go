package snapshot

import (
	"database/sql"
	"fmt"
	"os"

	"cairn/internal/chash"
)

func openTempDB(pattern string) (string, *sql.DB, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot: create temp db file: %w", err)
	}
	path := f.Name()
	f.Close()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	return path, db, nil
}

func writeTempDB(pattern string, raw []byte) (string, *sql.DB, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot: create temp db file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("snapshot: write temp db file: %w", err)
	}
	f.Close()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	return path, db, nil
}

func dumpAndClose(db *sql.DB, path string) ([]byte, error) {
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close db: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read db file: %w", err)
	}
	os.Remove(path)
	return data, nil
}

// ListEntry joins one file-index row with its resolved packfile, the Go
// analogue of original_source/rozen/src/sql.rs's walk_files, which
// attaches the map db to the index db and performs the join in SQL. A
// plain in-process join avoids relying on ATTACH DATABASE's connection
// lifecycle and is simpler to test, while reading identically to a
// caller.
type ListEntry struct {
	Path        string
	Permission  uint32
	ContentHash chash.Hash
	PackHash    chash.Hash
}

// ListEntries joins idx's file rows against m's packfile map.
func ListEntries(idx *Index, m *Map) ([]ListEntry, error) {
	files, err := idx.Files()
	if err != nil {
		return nil, err
	}
	packs, err := m.All()
	if err != nil {
		return nil, err
	}

	var out []ListEntry
	for _, f := range files {
		pack, ok := packs[f.Hash]
		if !ok {
			continue
		}
		out = append(out, ListEntry{
			Path:        f.Path,
			Permission:  f.Permission,
			ContentHash: f.Hash,
			PackHash:    pack,
		})
	}
	return out, nil
}
