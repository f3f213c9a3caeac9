package snapshot

import (
	"database/sql"
	"fmt"
	"os"

	"cairn/internal/chash"
)

// Map is the hash->packfile-id table, grounded on
// original_source/rozen/src/sql.rs's Map struct (packfiles table,
// insert_chunk/find_pack).
type Map struct {
	db   *sql.DB
	path string
}

// NewMap creates a fresh, empty hash->pack map.
func NewMap() (*Map, error) {
	path, db, err := openTempDB("cairn-map-*.sqlite")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE packfiles (
		content_hash TEXT NOT NULL,
		pack_hash TEXT NOT NULL
	)`); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("snapshot: create packfiles table: %w", err)
	}
	return &Map{db: db, path: path}, nil
}

// LoadMapFromBytes opens a map previously serialized with Dump.
func LoadMapFromBytes(raw []byte) (*Map, error) {
	path, db, err := writeTempDB("cairn-map-*.sqlite", raw)
	if err != nil {
		return nil, err
	}
	return &Map{db: db, path: path}, nil
}

// InsertChunk records which packfile a content-addressed blob landed in.
func (m *Map) InsertChunk(contentHash, packHash chash.Hash) error {
	_, err := m.db.Exec(
		`INSERT INTO packfiles (content_hash, pack_hash) VALUES (?, ?)`,
		contentHash.String(), packHash.String(),
	)
	return err
}

// FindPack looks up the packfile holding a content hash.
func (m *Map) FindPack(contentHash chash.Hash) (chash.Hash, bool, error) {
	var hex string
	err := m.db.QueryRow(
		`SELECT pack_hash FROM packfiles WHERE content_hash = ?`,
		contentHash.String(),
	).Scan(&hex)
	if err == sql.ErrNoRows {
		return chash.Hash{}, false, nil
	}
	if err != nil {
		return chash.Hash{}, false, err
	}
	h, err := chash.FromHex(hex)
	if err != nil {
		return chash.Hash{}, false, err
	}
	return h, true, nil
}

// All returns every content_hash -> pack_hash pairing.
func (m *Map) All() (map[chash.Hash]chash.Hash, error) {
	rows, err := m.db.Query(`SELECT content_hash, pack_hash FROM packfiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[chash.Hash]chash.Hash)
	for rows.Next() {
		var contentHex, packHex string
		if err := rows.Scan(&contentHex, &packHex); err != nil {
			return nil, err
		}
		c, err := chash.FromHex(contentHex)
		if err != nil {
			return nil, err
		}
		p, err := chash.FromHex(packHex)
		if err != nil {
			return nil, err
		}
		out[c] = p
	}
	return out, rows.Err()
}

// Dump closes the database and returns its raw on-disk bytes.
func (m *Map) Dump() ([]byte, error) {
	return dumpAndClose(m.db, m.path)
}
