package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) (*Controller, *fakeClock) {
	t.Helper()
	fc := newFakeClock()
	c, err := New(Config{
		MaxBufferedChunks: 8,
		Sink:              NewMemorySink(),
		Clock:             fc,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, fc
}

func TestRegistrationRejectedOutsideConfiguring(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.StartRecording())

	_, err := c.RegisterBoolean("late", false)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, WrongLifecycle, kind)
}

func TestRegistrationNameValidationAndDuplicates(t *testing.T) {
	c, _ := newTestController(t)

	_, err := c.RegisterInteger("bad name!", 0)
	kind, _ := KindOf(err)
	require.Equal(t, InvalidParam, kind)

	_, err = c.RegisterInteger("counter", 0)
	require.NoError(t, err)

	_, err = c.RegisterDouble("counter", 0.01, 0)
	kind, _ = KindOf(err)
	require.Equal(t, DuplicateName, kind)
}

func TestAliasResolutionAndUnknownTargets(t *testing.T) {
	c, _ := newTestController(t)

	err := c.RegisterAlias("orphan", "nonexistent")
	kind, _ := KindOf(err)
	require.Equal(t, UnknownVariable, kind)

	_, err = c.RegisterBoolean("heater.on", false)
	require.NoError(t, err)
	require.NoError(t, c.RegisterAlias("heater", "heater.on"))

	require.NoError(t, c.StartRecording())
	d, err := c.registerLookupForTest("heater.on")
	require.NoError(t, err)

	require.NoError(t, c.UpdateBool(d.ID, true))

	s, err := c.ComputeSample("heater", 0)
	require.NoError(t, err)
	require.Equal(t, true, s.Value)
}

// registerLookupForTest exposes the registry's name resolution to tests
// without making it part of the public Controller API.
func (c *Controller) registerLookupForTest(name string) (*Descriptor, error) {
	c.chunkMu.RLock()
	defer c.chunkMu.RUnlock()
	return c.reg.resolve(name)
}

func TestUpdateWrongKindAndWrongLifecycle(t *testing.T) {
	c, _ := newTestController(t)
	d, err := c.RegisterInteger("speed", 0)
	require.NoError(t, err)

	err = c.UpdateInteger(d.ID, 5)
	kind, _ := KindOf(err)
	require.Equal(t, WrongLifecycle, kind)

	require.NoError(t, c.StartRecording())

	err = c.UpdateDouble(d.ID, 1.5)
	kind, _ = KindOf(err)
	require.Equal(t, WrongKind, kind)

	require.NoError(t, c.UpdateInteger(d.ID, 5))
}

func TestPointSampleLeftContinuousRightInclusive(t *testing.T) {
	c, fc := newTestController(t)
	d, err := c.RegisterInteger("counter", 0)
	require.NoError(t, err)
	require.NoError(t, c.StartRecording())

	s, err := c.ComputeSample("counter", 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), s.Value)

	fc.Advance(100)
	require.NoError(t, c.UpdateInteger(d.ID, 42))

	s, err = c.ComputeSample("counter", 99)
	require.NoError(t, err)
	require.Equal(t, int64(0), s.Value, "before the update, left-continuous value is the prior one")

	s, err = c.ComputeSample("counter", 100)
	require.NoError(t, err)
	require.Equal(t, int64(42), s.Value, "at the exact update timestamp, right-inclusive tie-break wins")

	fc.Advance(400)
	s, err = c.ComputeSample("counter", 500)
	require.NoError(t, err)
	require.Equal(t, int64(42), s.Value)
}

func TestNotNumericForStringSample(t *testing.T) {
	c, _ := newTestController(t)
	d, err := c.RegisterString("status", "idle")
	require.NoError(t, err)
	require.NoError(t, c.StartRecording())
	require.NoError(t, c.UpdateString(d.ID, "running"))

	_, err = c.ComputeNumericSample("status", c.GetLifeTimeInMicroseconds())
	kind, _ := KindOf(err)
	require.Equal(t, NotNumeric, kind)
}

func TestComputeIntegerSampleRejectsDoubleWithWrongKind(t *testing.T) {
	c, _ := newTestController(t)
	di, err := c.RegisterInteger("count", 0)
	require.NoError(t, err)
	db, err := c.RegisterDouble("temp", 0.01, 1.5)
	require.NoError(t, err)
	require.NoError(t, c.StartRecording())
	require.NoError(t, c.UpdateInteger(di.ID, 7))
	require.NoError(t, c.UpdateDouble(db.ID, 2.5))

	v, err := c.ComputeIntegerSample("count", c.GetLifeTimeInMicroseconds())
	require.NoError(t, err)
	require.Equal(t, int64(7), v)

	_, err = c.ComputeIntegerSample("temp", c.GetLifeTimeInMicroseconds())
	kind, _ := KindOf(err)
	require.Equal(t, WrongKind, kind)
}

func TestTimeOutOfRangeForFutureQuery(t *testing.T) {
	c, fc := newTestController(t)
	_, err := c.RegisterInteger("x", 0)
	require.NoError(t, err)
	require.NoError(t, c.StartRecording())
	fc.Advance(1000)

	_, err = c.ComputeSample("x", 5000)
	kind, _ := KindOf(err)
	require.Equal(t, TimeOutOfRange, kind)
}

// TestSealingDrainsThroughBufferAndSink exercises the full tail -> buffer
// -> persistence path: force enough seals that the original chunk is
// evicted from the in-memory buffer, and confirm the sample is still
// answered correctly from the PersistenceSink.
func TestSealingDrainsThroughBufferAndSink(t *testing.T) {
	fc := newFakeClock()
	sink := NewMemorySink()
	c, err := New(Config{
		MaxBufferedChunks: 1,
		Sink:              sink,
		Clock:             fc,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	d, err := c.RegisterInteger("counter", 0)
	require.NoError(t, err)
	require.NoError(t, c.StartRecording())

	require.NoError(t, c.UpdateInteger(d.ID, 1))
	c.sealOpenChunk()

	fc.Advance(10)
	require.NoError(t, c.UpdateInteger(d.ID, 2))
	c.sealOpenChunk()

	fc.Advance(10)
	require.NoError(t, c.UpdateInteger(d.ID, 3))
	c.sealOpenChunk()

	require.NoError(t, c.drain.Wait())

	require.Equal(t, 1, c.buffer.len(), "buffer should hold only the most recent sealed chunk")

	s, err := c.ComputeSample("counter", 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), s.Value, "evicted chunks' values must still be reachable via the sink")
}

func TestFinishRecordingDrainsAndTransitionsLifecycle(t *testing.T) {
	c, _ := newTestController(t)
	d, err := c.RegisterInteger("x", 0)
	require.NoError(t, err)
	require.NoError(t, c.StartRecording())
	require.NoError(t, c.UpdateInteger(d.ID, 9))

	require.NoError(t, c.FinishRecording(context.Background()))

	err = c.UpdateInteger(d.ID, 10)
	kind, _ := KindOf(err)
	require.Equal(t, WrongLifecycle, kind)

	s, err := c.ComputeSample("x", c.GetLifeTimeInMicroseconds())
	require.NoError(t, err)
	require.Equal(t, int64(9), s.Value)
}

func TestTooManyVariablesRejected(t *testing.T) {
	reg := newRegistry()
	reg.cap = 2 // exercise the cap logic without registering 16Mi variables

	_, err := reg.register("a", KindBoolean, 0, false)
	require.NoError(t, err)
	_, err = reg.register("b", KindBoolean, 0, false)
	require.NoError(t, err)

	_, err = reg.register("overflow", KindBoolean, 0, false)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, TooManyVariables, kind)
}
