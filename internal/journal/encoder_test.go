package journal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuantizeRoundTrip(t *testing.T) {
	units := 0.01
	for _, v := range []float64{0, 1.23, -4.56, 100.0, 0.005} {
		q := quantize(v, units)
		got := dequantize(q, units)
		require.InDelta(t, v, got, units)
	}
}

func TestVariableStreamBooleanSample(t *testing.T) {
	vs := newVariableStream(KindBoolean, 0, false, 1000)
	vs.append(1500, true)
	vs.append(2000, false)

	require.Equal(t, false, sampleAt(KindBoolean, 0, false, vs.buf, 1000, 999))
	require.Equal(t, true, sampleAt(KindBoolean, 0, false, vs.buf, 1000, 1500))  // right-inclusive
	require.Equal(t, true, sampleAt(KindBoolean, 0, false, vs.buf, 1000, 1700))
	require.Equal(t, false, sampleAt(KindBoolean, 0, false, vs.buf, 1000, 2000))
}

func TestVariableStreamIntegerDeltas(t *testing.T) {
	vs := newVariableStream(KindInteger, 0, int64(10), 0)
	vs.append(100, int64(15))
	vs.append(250, int64(5))

	require.Equal(t, int64(10), sampleAt(KindInteger, 0, int64(10), vs.buf, 0, 50))
	require.Equal(t, int64(15), sampleAt(KindInteger, 0, int64(10), vs.buf, 0, 100))
	require.Equal(t, int64(15), sampleAt(KindInteger, 0, int64(10), vs.buf, 0, 200))
	require.Equal(t, int64(5), sampleAt(KindInteger, 0, int64(10), vs.buf, 0, 9999))
}

func TestVariableStreamDoubleQuantization(t *testing.T) {
	units := 0.001
	vs := newVariableStream(KindDouble, units, 1.000, 0)
	vs.append(10, 1.0015) // quantizes to 1.002 or 1.001 depending on rounding of .5

	got := sampleAt(KindDouble, units, 1.000, vs.buf, 0, 10)
	require.InDelta(t, 1.0015, got.(float64), units)
}

func TestVariableStreamStringLengthPrefixed(t *testing.T) {
	vs := newVariableStream(KindString, 0, "", 0)
	vs.append(5, "hello")
	vs.append(20, "world!")

	require.Equal(t, "", sampleAt(KindString, 0, "", vs.buf, 0, 0))
	require.Equal(t, "hello", sampleAt(KindString, 0, "", vs.buf, 0, 5))
	require.Equal(t, "hello", sampleAt(KindString, 0, "", vs.buf, 0, 19))
	require.Equal(t, "world!", sampleAt(KindString, 0, "", vs.buf, 0, 20))
}

func TestAppendVarintRoundTrip(t *testing.T) {
	var buf []byte
	buf = appendUvarint(buf, 12345)
	buf = appendVarint(buf, -9876)

	u, n, ok := readUvarint(buf)
	require.True(t, ok)
	require.Equal(t, uint64(12345), u)

	v, _, ok := readVarint(buf[n:])
	require.True(t, ok)
	require.Equal(t, int64(-9876), v)
}
