package journal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkEncodeDecodeRoundTrip(t *testing.T) {
	c := newChunk(7, 1000)
	c.recordUpdate(1, KindBoolean, 0, 1000, true, false)
	c.recordUpdate(1, KindBoolean, 0, 1200, false, false)
	c.recordUpdate(2, KindDouble, 0.01, 1050, 3.14, 0.0)
	c.recordUpdate(3, KindString, 0, 1100, "start", "")
	c.seal(2000)

	encoded := c.encode()

	resolve := func(id uint32) (Kind, float64, error) {
		switch id {
		case 1:
			return KindBoolean, 0, nil
		case 2:
			return KindDouble, 0.01, nil
		case 3:
			return KindString, 0, nil
		}
		return 0, 0, newErr(UnknownVariable, "resolve", nil)
	}

	decoded, err := decodeChunk(encoded, resolve)
	require.NoError(t, err)
	require.Equal(t, c.ID, decoded.ID)
	require.Equal(t, c.TStart, decoded.TStart)
	require.Equal(t, c.TEnd, decoded.TEnd)

	v, ok := decoded.sample(1, 1200)
	require.True(t, ok)
	require.Equal(t, false, v)

	v, ok = decoded.sample(2, 2000)
	require.True(t, ok)
	require.InDelta(t, 3.14, v.(float64), 0.01)

	v, ok = decoded.sample(3, 2000)
	require.True(t, ok)
	require.Equal(t, "start", v)

	_, ok = decoded.sample(4, 2000)
	require.False(t, ok)
}

func TestChunkDecodeRejectsBadMagic(t *testing.T) {
	_, err := decodeChunk([]byte("not a chunk record at all, too short"), nil)
	require.ErrorIs(t, err, ErrBadMagic)
}
