package journal

import "math"

// variableStream holds one variable's encoded update stream for a single
// chunk, plus the entry-value the chunk header records for it (spec.md
// §3, "Update record"). It exists only for variables that have received at
// least one update since the chunk was opened; a variable that stays quiet
// for an entire chunk simply has no variableStream in that chunk, and the
// Sample Reader walks back to an earlier chunk for it (spec.md §4.7 step 4).
type variableStream struct {
	kind  Kind
	units float64

	entry any // value as of the chunk's t_start

	buf []byte // encoded (Δt, Δvalue) stream

	prevTS    uint64 // timestamp baseline for the next Δt (t_start, then last update ts)
	lastValue any    // last recorded value, the baseline for the next Δvalue in this chunk
	lastTS    uint64 // last recorded absolute timestamp
}

func newVariableStream(kind Kind, units float64, entry any, chunkStart uint64) *variableStream {
	return &variableStream{
		kind:      kind,
		units:     units,
		entry:     entry,
		prevTS:    chunkStart,
		lastValue: entry,
		lastTS:    chunkStart,
	}
}

// quantize maps a float64 to the integer number of units it represents.
// Doubles are never stored as floating point: quantizing to integer
// multiples of units keeps deltas small and makes equality deterministic
// (spec.md §4.3).
func quantize(v, units float64) int64 {
	return int64(math.Round(v / units))
}

func dequantize(q int64, units float64) float64 {
	return float64(q) * units
}

// append encodes one update at absolute timestamp ts. v's dynamic type must
// match the stream's kind; callers (the Controller) guarantee this via
// WrongKind checks before calling append.
func (vs *variableStream) append(ts uint64, v any) {
	dt := ts - vs.prevTS

	switch vs.kind {
	case KindBoolean:
		vs.buf = appendUvarint(vs.buf, dt)
		var b byte
		if v.(bool) {
			b = 1
		}
		vs.buf = append(vs.buf, b)
	case KindInteger:
		prev := vs.lastValue.(int64)
		cur := v.(int64)
		vs.buf = appendUvarint(vs.buf, dt)
		vs.buf = appendVarint(vs.buf, cur-prev)
	case KindDouble:
		prevQ := quantize(vs.lastValue.(float64), vs.units)
		curQ := quantize(v.(float64), vs.units)
		vs.buf = appendUvarint(vs.buf, dt)
		vs.buf = appendVarint(vs.buf, curQ-prevQ)
	case KindString:
		s := v.(string)
		vs.buf = appendUvarint(vs.buf, dt)
		vs.buf = appendUvarint(vs.buf, uint64(len(s)))
		vs.buf = append(vs.buf, s...)
	}

	vs.prevTS = ts
	vs.lastTS = ts
	vs.lastValue = v
}

// sampleAt decodes the stream left-to-right up to (and including, per the
// right-inclusive tie-break) the update at or before t, starting from
// chunkStart and the chunk's entry value. It returns the last value decoded
// at or before t (the entry value if there is none); if the stream is
// truncated mid-record, it returns the last complete value decoded.
func sampleAt(kind Kind, units float64, entry any, buf []byte, chunkStart, t uint64) any {
	cur := entry
	ts := chunkStart
	rest := buf

	for len(rest) > 0 {
		dt, n, ok := readUvarint(rest)
		if !ok {
			break
		}
		rest = rest[n:]
		candidateTS := ts + dt

		var val any
		switch kind {
		case KindBoolean:
			if len(rest) < 1 {
				return cur
			}
			val = rest[0] != 0
			rest = rest[1:]
		case KindInteger:
			dv, m, ok := readVarint(rest)
			if !ok {
				return cur
			}
			rest = rest[m:]
			val = cur.(int64) + dv
		case KindDouble:
			dq, m, ok := readVarint(rest)
			if !ok {
				return cur
			}
			rest = rest[m:]
			curQ := quantize(cur.(float64), units)
			val = dequantize(curQ+dq, units)
		case KindString:
			length, m, ok := readUvarint(rest)
			if !ok {
				return cur
			}
			rest = rest[m:]
			if uint64(len(rest)) < length {
				return cur
			}
			val = string(rest[:length])
			rest = rest[length:]
		}

		// Right-inclusive tie-break: an update stamped exactly at t wins.
		if candidateTS > t {
			return cur
		}
		cur = val
		ts = candidateTS
	}

	return cur
}
