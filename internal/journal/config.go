package journal

import "time"

// Config holds the tunables a Journal instance is constructed with. Zero
// values are replaced by withDefaults() at construction time, mirroring the
// teacher's config-with-defaults convention (internal/config).
type Config struct {
	// MaxChunkBytes and MaxChunkAge feed the default size/age SealPolicy
	// when Policy is nil; they are ignored if Policy is set explicitly.
	MaxChunkBytes int64
	MaxChunkAge   time.Duration

	// MaxBufferedChunks bounds the in-memory ring of Sealed chunks kept
	// available for fast sampling before they are evicted once persisted.
	MaxBufferedChunks int

	// FinishDrainTimeout bounds how long FinishRecording waits for the
	// background drain to persist the final chunks before giving up.
	FinishDrainTimeout time.Duration

	// Policy overrides the default size/age seal policy entirely.
	Policy SealPolicy

	// Sink durably persists sealed chunks. A nil Sink is replaced by a
	// MemorySink: sealed chunks stay sampleable after buffer eviction but
	// are lost on shutdown.
	Sink PersistenceSink

	// Clock overrides the journal's time source. Nil means the real
	// monotonic clock.Clock; tests inject a fakeClock so P1-P6 and the
	// end-to-end scenarios never depend on a wall-clock sleep.
	Clock Clock
}

// Clock is the time source a Controller depends on. *clock.Clock
// satisfies it; tests substitute a manually-advanced fake.
type Clock interface {
	Start()
	Started() bool
	Now() uint64
}

func (c Config) withDefaults() Config {
	if c.MaxChunkBytes <= 0 {
		c.MaxChunkBytes = 64 * 1024
	}
	if c.MaxChunkAge <= 0 {
		c.MaxChunkAge = 5 * time.Second
	}
	if c.MaxBufferedChunks <= 0 {
		c.MaxBufferedChunks = 64
	}
	if c.FinishDrainTimeout <= 0 {
		c.FinishDrainTimeout = 10 * time.Second
	}
	if c.Policy == nil {
		c.Policy = CompositeSealPolicy{Policies: []SealPolicy{
			SizeSealPolicy{MaxBytes: c.MaxChunkBytes},
			AgeSealPolicy{MaxAge: c.MaxChunkAge},
		}}
	}
	if c.Sink == nil {
		c.Sink = NewMemorySink()
	}
	return c
}
