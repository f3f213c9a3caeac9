// Package snapshot implements the two SQLite-backed schemas a snapshot
// archive carries: the file index (SHDR) and the hash->packfile map
// (PIDX), grounded on original_source/rozen/src/sql.rs.
package snapshot

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"cairn/internal/chash"
)

// Index is the snapshot's file table: path, permission bits, and the
// content hash of each file captured by an append run.
type Index struct {
	db   *sql.DB
	path string
}

// NewIndex creates a fresh, empty file index backed by a temporary
// on-disk SQLite database.
func NewIndex() (*Index, error) {
	path, db, err := openTempDB("cairn-index-*.sqlite")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE files (
		path TEXT NOT NULL,
		permission INTEGER NOT NULL,
		content_hash TEXT NOT NULL
	)`); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("snapshot: create files table: %w", err)
	}
	return &Index{db: db, path: path}, nil
}

// LoadIndexFromBytes opens an index previously serialized with Dump.
func LoadIndexFromBytes(raw []byte) (*Index, error) {
	path, db, err := writeTempDB("cairn-index-*.sqlite", raw)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, path: path}, nil
}

// InsertFile records one captured file.
func (idx *Index) InsertFile(path string, permission uint32, hash chash.Hash) error {
	_, err := idx.db.Exec(
		`INSERT INTO files (path, permission, content_hash) VALUES (?, ?, ?)`,
		path, permission, hash.String(),
	)
	return err
}

// FileRow is one captured file entry.
type FileRow struct {
	Path       string
	Permission uint32
	Hash       chash.Hash
}

// Files returns every row in the file table.
func (idx *Index) Files() ([]FileRow, error) {
	rows, err := idx.db.Query(`SELECT path, permission, content_hash FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var fr FileRow
		var hexHash string
		if err := rows.Scan(&fr.Path, &fr.Permission, &hexHash); err != nil {
			return nil, err
		}
		h, err := chash.FromHex(hexHash)
		if err != nil {
			return nil, err
		}
		fr.Hash = h
		out = append(out, fr)
	}
	return out, rows.Err()
}

// Dump closes the database and returns its raw on-disk bytes, for the
// caller to hash/compress/encrypt as any other blob.
func (idx *Index) Dump() ([]byte, error) {
	return dumpAndClose(idx.db, idx.path)
}
