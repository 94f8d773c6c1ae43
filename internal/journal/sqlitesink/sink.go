// Package sqlitesink is the durable PersistenceSink: an append-only chunk
// data file paired with a sqlite index of (chunk_id, t_start, t_end,
// offset, size) rows. Grounded on the teacher's config/sqlite store: bytes
// land on disk and are fsynced before the index row that makes them
// findable is committed, so a crash between the two leaves orphaned bytes
// rather than a dangling, unreadable index entry. Payloads are zstd
// compressed before they hit disk and transparently decompressed on lookup.
package sqlitesink

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"amcjournal/internal/journal"
)

var _ journal.PersistenceSink = (*Sink)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS chunk_index (
	chunk_id    INTEGER PRIMARY KEY,
	t_start     INTEGER NOT NULL,
	t_end       INTEGER NOT NULL,
	byte_offset INTEGER NOT NULL,
	byte_size   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS chunk_index_t_start ON chunk_index (t_start);
`

// Sink is the sqlite-backed, file-backed PersistenceSink implementation.
// Chunk payloads are zstd-compressed on their way to disk: sealed chunks
// are mostly repeated delta/varint bytes and compress well, and the data
// file's byte_offset/byte_size bookkeeping is indifferent to what's inside.
type Sink struct {
	mu       sync.Mutex
	db       *sql.DB
	dataFile *os.File
	offset   int64
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// Open opens (creating if absent) the index database at indexPath and the
// append-only data file at dataPath, recovering offset bookkeeping from
// the data file's current size.
func Open(indexPath, dataPath string) (*Sink, error) {
	db, err := sql.Open("sqlite", indexPath)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: open index: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one *sql.DB

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitesink: migrate: %w", err)
	}

	f, err := os.OpenFile(dataPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitesink: open data file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		db.Close()
		return nil, fmt.Errorf("sqlitesink: stat data file: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		db.Close()
		return nil, fmt.Errorf("sqlitesink: new zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		f.Close()
		db.Close()
		return nil, fmt.Errorf("sqlitesink: new zstd decoder: %w", err)
	}

	s := &Sink{db: db, dataFile: f, offset: info.Size(), enc: enc, dec: dec}
	if err := s.recover(info.Size()); err != nil {
		dec.Close()
		enc.Close()
		f.Close()
		db.Close()
		return nil, err
	}
	return s, nil
}

// recover drops any index row that claims bytes past the data file's
// actual length, i.e. a row whose chunk bytes are missing from the data
// file. Persist commits a row only after its bytes are fsynced, so a crash
// between the two leaves unindexed bytes, not such a row.
func (s *Sink) recover(fileSize int64) error {
	rows, err := s.db.Query(`SELECT chunk_id, byte_offset, byte_size FROM chunk_index`)
	if err != nil {
		return fmt.Errorf("sqlitesink: recovery scan: %w", err)
	}
	defer rows.Close()

	var orphans []int64
	for rows.Next() {
		var id, off, size int64
		if err := rows.Scan(&id, &off, &size); err != nil {
			return fmt.Errorf("sqlitesink: recovery scan row: %w", err)
		}
		if off+size > fileSize {
			orphans = append(orphans, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range orphans {
		if _, err := s.db.Exec(`DELETE FROM chunk_index WHERE chunk_id = ?`, id); err != nil {
			return fmt.Errorf("sqlitesink: drop orphan row %d: %w", id, err)
		}
	}
	return nil
}

func (s *Sink) Persist(id journal.ChunkID, tStart, tEnd uint64, encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	compressed := s.enc.EncodeAll(encoded, nil)

	off := s.offset
	n, err := s.dataFile.WriteAt(compressed, off)
	if err != nil {
		return fmt.Errorf("sqlitesink: write chunk %d: %w", id, err)
	}
	if err := s.dataFile.Sync(); err != nil {
		return fmt.Errorf("sqlitesink: sync chunk %d: %w", id, err)
	}
	s.offset += int64(n)

	_, err = s.db.Exec(
		`INSERT INTO chunk_index (chunk_id, t_start, t_end, byte_offset, byte_size) VALUES (?, ?, ?, ?, ?)`,
		uint64(id), tStart, tEnd, off, n,
	)
	if err != nil {
		return fmt.Errorf("sqlitesink: commit index row for chunk %d: %w", id, err)
	}
	return nil
}

// Lookup returns the encoded bytes of every persisted chunk with
// t_start <= t, newest (highest chunk_id) first.
func (s *Sink) Lookup(t uint64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT byte_offset, byte_size FROM chunk_index WHERE t_start <= ? ORDER BY chunk_id DESC`,
		t,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: lookup: %w", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var off, size int64
		if err := rows.Scan(&off, &size); err != nil {
			return nil, fmt.Errorf("sqlitesink: lookup row: %w", err)
		}
		buf := make([]byte, size)
		if _, err := s.dataFile.ReadAt(buf, off); err != nil {
			return nil, fmt.Errorf("sqlitesink: read chunk at offset %d: %w", off, err)
		}
		decoded, err := s.dec.DecodeAll(buf, nil)
		if err != nil {
			return nil, fmt.Errorf("sqlitesink: decompress chunk at offset %d: %w", off, err)
		}
		out = append(out, decoded)
	}
	return out, rows.Err()
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dec.Close()
	encErr := s.enc.Close()
	fErr := s.dataFile.Close()
	dErr := s.db.Close()
	if encErr != nil {
		return encErr
	}
	if fErr != nil {
		return fErr
	}
	return dErr
}
