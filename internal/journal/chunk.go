package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// ChunkID is a simple monotonic counter assigned by the Controller. Unlike
// the teacher's UUIDv7-derived chunk identifiers, a journal chunk's total
// order is itself the invariant under test (spec.md §3, "chunks form a
// totally ordered sequence"); a monotonic counter gives that directly
// without leaning on a wall-clock-derived ID.
type ChunkID uint64

// ChunkState is the lifecycle state of a single chunk (spec.md §3).
type ChunkState int

const (
	ChunkOpen ChunkState = iota
	ChunkSealed
	ChunkPersisted
	ChunkEvicted
)

// Chunk is a contiguous, half-open time interval [TStart, TEnd) of encoded
// updates. Only the Open chunk is writable; once Sealed it is immutable.
type Chunk struct {
	ID     ChunkID
	TStart uint64
	TEnd   uint64 // valid once Sealed
	State  ChunkState

	vars     map[uint32]*variableStream
	byteSize int64
}

func newChunk(id ChunkID, tStart uint64) *Chunk {
	return &Chunk{
		ID:     id,
		TStart: tStart,
		State:  ChunkOpen,
		vars:   make(map[uint32]*variableStream),
	}
}

// recordUpdate appends an update for variable id at absolute timestamp ts.
// entryIfNew is the value to use as this chunk's entry-value the first time
// this variable is touched in the chunk (the Controller computes it from
// its own cross-chunk last-known-value tracking).
func (c *Chunk) recordUpdate(id uint32, kind Kind, units float64, ts uint64, v any, entryIfNew any) {
	vs, ok := c.vars[id]
	if !ok {
		vs = newVariableStream(kind, units, entryIfNew, c.TStart)
		c.vars[id] = vs
		c.byteSize += int64(len(encodeEntryValue(kind, units, entryIfNew)))
	}
	before := len(vs.buf)
	vs.append(ts, v)
	c.byteSize += int64(len(vs.buf) - before)
}

// sample returns (value, true) if the variable has at least one update
// recorded in this chunk, decoding left-continuously up to t. It returns
// (nil, false) if the variable never appears in this chunk at all, per
// spec.md §4.7 step 4 (caller must then consult an earlier chunk).
func (c *Chunk) sample(id uint32, t uint64) (any, bool) {
	vs, ok := c.vars[id]
	if !ok {
		return nil, false
	}
	return sampleAt(vs.kind, vs.units, vs.entry, vs.buf, c.TStart, t), true
}

func (c *Chunk) seal(tEnd uint64) {
	c.TEnd = tEnd
	c.State = ChunkSealed
}

// --- Wire framing (spec.md §6) ---

const (
	chunkMagic   = "AMCJ"
	chunkVersion = uint32(1)
)

var (
	ErrBadMagic   = errors.New("journal: bad chunk magic")
	ErrBadVersion = errors.New("journal: unsupported chunk version")
	ErrTruncated  = errors.New("journal: truncated chunk record")
)

// kindOf is supplied by the caller (normally the registry) to resolve a
// variable id's Kind/Units at encode and decode time, since the wire frame
// itself only carries raw ids, not full descriptors.
type kindOf func(id uint32) (Kind, float64, error)

// encode serializes the chunk into the §6 wire frame:
// magic, version, chunk_id, t_start, t_end, variable_count,
// then a (var_id, stream_size, entry_value_size) table,
// then each variable's entry-value bytes followed by its stream bytes.
func (c *Chunk) encode() []byte {
	ids := make([]uint32, 0, len(c.vars))
	for id := range c.vars {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	entries := make(map[uint32][]byte, len(ids))
	for _, id := range ids {
		vs := c.vars[id]
		entries[id] = encodeEntryValue(vs.kind, vs.units, vs.entry)
	}

	out := make([]byte, 0, 64)
	out = append(out, chunkMagic...)
	out = appendU32(out, chunkVersion)
	out = appendU64(out, uint64(c.ID))
	out = appendU64(out, c.TStart)
	out = appendU64(out, c.TEnd)
	out = appendU32(out, uint32(len(ids)))

	for _, id := range ids {
		vs := c.vars[id]
		out = appendU32(out, id)
		out = appendU32(out, uint32(len(vs.buf)))
		out = appendU32(out, uint32(len(entries[id])))
	}
	for _, id := range ids {
		out = append(out, entries[id]...)
		out = append(out, c.vars[id].buf...)
	}
	return out
}

// decodeChunk parses a wire frame produced by encode, resolving each
// variable's Kind/Units via resolve.
func decodeChunk(buf []byte, resolve kindOf) (*Chunk, error) {
	if len(buf) < len(chunkMagic)+4+8+8+8+4 {
		return nil, ErrTruncated
	}
	if string(buf[:4]) != chunkMagic {
		return nil, ErrBadMagic
	}
	off := 4
	version := readU32(buf[off:])
	off += 4
	if version != chunkVersion {
		return nil, ErrBadVersion
	}
	id := ChunkID(readU64(buf[off:]))
	off += 8
	tStart := readU64(buf[off:])
	off += 8
	tEnd := readU64(buf[off:])
	off += 8
	varCount := readU32(buf[off:])
	off += 4

	type tableRow struct {
		id              uint32
		streamSize      uint32
		entryValueSize  uint32
	}
	rows := make([]tableRow, 0, varCount)
	for i := uint32(0); i < varCount; i++ {
		if off+12 > len(buf) {
			return nil, ErrTruncated
		}
		row := tableRow{
			id:             readU32(buf[off:]),
			streamSize:     readU32(buf[off+4:]),
			entryValueSize: readU32(buf[off+8:]),
		}
		off += 12
		rows = append(rows, row)
	}

	c := &Chunk{ID: id, TStart: tStart, TEnd: tEnd, State: ChunkSealed, vars: make(map[uint32]*variableStream)}
	for _, row := range rows {
		kind, units, err := resolve(row.id)
		if err != nil {
			return nil, fmt.Errorf("journal: resolve variable %d: %w", row.id, err)
		}
		if off+int(row.entryValueSize) > len(buf) {
			return nil, ErrTruncated
		}
		entryBuf := buf[off : off+int(row.entryValueSize)]
		off += int(row.entryValueSize)
		entry, err := decodeEntryValue(kind, units, entryBuf)
		if err != nil {
			return nil, err
		}
		if off+int(row.streamSize) > len(buf) {
			return nil, ErrTruncated
		}
		streamBuf := make([]byte, row.streamSize)
		copy(streamBuf, buf[off:off+int(row.streamSize)])
		off += int(row.streamSize)

		c.vars[row.id] = &variableStream{
			kind:  kind,
			units: units,
			entry: entry,
			buf:   streamBuf,
		}
	}
	return c, nil
}

func encodeEntryValue(kind Kind, units float64, v any) []byte {
	switch kind {
	case KindBoolean:
		var b byte
		if v.(bool) {
			b = 1
		}
		return []byte{b}
	case KindInteger:
		return appendVarint(nil, v.(int64))
	case KindDouble:
		return appendVarint(nil, quantize(v.(float64), units))
	case KindString:
		s := v.(string)
		buf := appendUvarint(nil, uint64(len(s)))
		return append(buf, s...)
	default:
		return nil
	}
}

func decodeEntryValue(kind Kind, units float64, buf []byte) (any, error) {
	switch kind {
	case KindBoolean:
		if len(buf) < 1 {
			return nil, ErrTruncated
		}
		return buf[0] != 0, nil
	case KindInteger:
		v, _, ok := readVarint(buf)
		if !ok {
			return nil, ErrTruncated
		}
		return v, nil
	case KindDouble:
		q, _, ok := readVarint(buf)
		if !ok {
			return nil, ErrTruncated
		}
		return dequantize(q, units), nil
	case KindString:
		length, n, ok := readUvarint(buf)
		if !ok || uint64(len(buf)-n) < length {
			return nil, ErrTruncated
		}
		return string(buf[n : n+int(length)]), nil
	default:
		return nil, fmt.Errorf("journal: unknown kind %v", kind)
	}
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readU32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }
func readU64(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf) }
