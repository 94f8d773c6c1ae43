package journal

// Sample is the result of a point-sample query: the value as of the
// queried timestamp, tagged with the variable's Kind so callers can type
// switch without a second registry lookup.
type Sample struct {
	Kind  Kind
	Value any
}

// ComputeSample resolves name (following at most one alias hop) and
// returns its value at timestamp t, using left-continuous point-sampling
// with a right-inclusive tie-break at exact update timestamps (spec.md
// §4.7). The search order is tail (the live Open chunk), then the
// in-memory chunk buffer, then the PersistenceSink, each newest-first, so
// that the answer for a value just sealed or just evicted is consistent
// regardless of which component currently holds it.
func (c *Controller) ComputeSample(name string, t uint64) (Sample, error) {
	c.lifecycleMu.Lock()
	finished := c.state == stateFinished
	c.lifecycleMu.Unlock()
	if !finished {
		if now := c.clock.Now(); c.clock.Started() && t > now {
			return Sample{}, newErr(TimeOutOfRange, "computeSample", nil)
		}
	}

	// The read lock is held across the Open chunk's sample() call itself,
	// not just the pointer fetch: recordUpdate mutates the chunk's map and
	// byte slices under the write lock, so a snapshot read that released
	// the lock first could race with a concurrent update (spec.md §5).
	c.chunkMu.RLock()
	d, err := c.reg.resolve(name)
	if err != nil {
		c.chunkMu.RUnlock()
		return Sample{}, err
	}
	id := d.ID
	kind := d.Kind

	if c.open != nil && t >= c.open.TStart {
		if v, ok := c.open.sample(id, t); ok {
			c.chunkMu.RUnlock()
			return Sample{Kind: kind, Value: v}, nil
		}
	}
	c.chunkMu.RUnlock()

	if v, ok := c.buffer.sample(id, t); ok {
		return Sample{Kind: kind, Value: v}, nil
	}

	encoded, err := c.sink.Lookup(t)
	if err != nil {
		return Sample{}, newErr(StorageFailure, "computeSample", err)
	}
	for _, buf := range encoded {
		chunk, err := decodeChunk(buf, c.resolveKind)
		if err != nil {
			return Sample{}, newErr(StorageFailure, "computeSample", err)
		}
		if v, ok := chunk.sample(id, t); ok {
			return Sample{Kind: kind, Value: v}, nil
		}
	}

	return Sample{Kind: kind, Value: d.Initial}, nil
}

// ComputeNumericSample is a convenience for callers that want a numeric
// view of a sample: Booleans are 0/1, Integers and Doubles pass through as
// float64. Strings have no numeric representation and yield NotNumeric.
func (c *Controller) ComputeNumericSample(name string, t uint64) (float64, error) {
	s, err := c.ComputeSample(name, t)
	if err != nil {
		return 0, err
	}
	switch s.Kind {
	case KindBoolean:
		if s.Value.(bool) {
			return 1, nil
		}
		return 0, nil
	case KindInteger:
		return float64(s.Value.(int64)), nil
	case KindDouble:
		return s.Value.(float64), nil
	default:
		return 0, newErr(NotNumeric, "computeNumericSample", nil)
	}
}

// ComputeIntegerSample is the integral counterpart of ComputeNumericSample.
// Unlike it, Double is not a widening conversion here: a Double sample
// queried through the integer accessor fails WrongKind rather than
// silently truncating a quantized value (spec.md §4.7). Booleans are 0/1,
// Integers pass through, and Strings have no numeric representation and
// yield NotNumeric.
func (c *Controller) ComputeIntegerSample(name string, t uint64) (int64, error) {
	s, err := c.ComputeSample(name, t)
	if err != nil {
		return 0, err
	}
	switch s.Kind {
	case KindBoolean:
		if s.Value.(bool) {
			return 1, nil
		}
		return 0, nil
	case KindInteger:
		return s.Value.(int64), nil
	case KindDouble:
		return 0, newErr(WrongKind, "computeIntegerSample", nil)
	default:
		return 0, newErr(NotNumeric, "computeIntegerSample", nil)
	}
}
