package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"amcjournal/internal/clock"
	"amcjournal/internal/logging"
)

// lifecycleState is the Journal Controller's own state machine, distinct
// from a chunk's ChunkState (spec.md §3, "Journal lifecycle").
type lifecycleState int

const (
	stateConfiguring lifecycleState = iota
	stateRecording
	stateFinished
)

// Controller is the Journal Controller: it owns variable registration,
// routes updates into the current Open chunk, and drives sealing,
// persistence, and eviction. Grounded on the teacher's orchestrator split
// (a cron-scheduled background sweep plus a synchronous public API), but
// the thing being orchestrated is chunk lifecycle instead of log rotation.
type Controller struct {
	cfg    Config
	clock  Clock
	logger *slog.Logger

	lifecycleMu sync.Mutex
	state       lifecycleState

	chunkMu       sync.RWMutex // guards open, chunkOpenedAt, lastValue
	reg           *registry
	open          *Chunk
	nextChunkID   ChunkID
	chunkOpenedAt uint64
	lastValue     map[uint32]any

	buffer *chunkBuffer
	sink   PersistenceSink
	policy SealPolicy

	// drain is a single-slot errgroup: sealOpenChunk submits one sealed
	// chunk at a time for persistence, and a second submission blocks
	// until the first finishes, giving the single-writer drain discipline
	// spec.md §5 requires without a separate worker goroutine and channel.
	drain *errgroup.Group

	scheduler gocron.Scheduler
	sealJob   gocron.Job
}

// New constructs a Controller in the Configuring state. The returned
// Controller runs a cron-scheduled seal sweep and persists sealed chunks on
// drain goroutines; call Close to stop the sweep and close the sink once
// the journal is no longer needed.
func New(cfg Config, logger *slog.Logger) (*Controller, error) {
	cfg = cfg.withDefaults()
	logger = logging.Default(logger).With("component", "journal")

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("journal: new scheduler: %w", err)
	}

	drain := &errgroup.Group{}
	drain.SetLimit(1)

	timeSource := cfg.Clock
	if timeSource == nil {
		timeSource = clock.New()
	}

	c := &Controller{
		cfg:       cfg,
		clock:     timeSource,
		logger:    logger,
		reg:       newRegistry(),
		lastValue: make(map[uint32]any),
		buffer:    newChunkBuffer(cfg.MaxBufferedChunks),
		sink:      cfg.Sink,
		policy:    cfg.Policy,
		drain:     drain,
		scheduler: sched,
	}

	job, err := sched.NewJob(
		gocron.DurationJob(50*time.Millisecond),
		gocron.NewTask(c.sealIfNeeded),
	)
	if err != nil {
		return nil, fmt.Errorf("journal: schedule seal sweep: %w", err)
	}
	c.sealJob = job
	sched.Start()

	return c, nil
}

// VariableNames returns every currently registered variable name, for
// diagnostics and the read-only HTTP surface. It does not include aliases.
func (c *Controller) VariableNames() []string {
	c.chunkMu.RLock()
	defer c.chunkMu.RUnlock()
	names := make([]string, 0, c.reg.count())
	for name := range c.reg.byName {
		names = append(names, name)
	}
	return names
}

// --- Registration (Configuring only) ---

func (c *Controller) RegisterBoolean(name string, initial bool) (*Descriptor, error) {
	return c.register(name, KindBoolean, 0, initial)
}

func (c *Controller) RegisterInteger(name string, initial int64) (*Descriptor, error) {
	return c.register(name, KindInteger, 0, initial)
}

func (c *Controller) RegisterDouble(name string, units float64, initial float64) (*Descriptor, error) {
	return c.register(name, KindDouble, clampUnits(units), initial)
}

func (c *Controller) RegisterString(name string, initial string) (*Descriptor, error) {
	return c.register(name, KindString, 0, initial)
}

func (c *Controller) RegisterAlias(alias, target string) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.state != stateConfiguring {
		return newErr(WrongLifecycle, "registerAlias", nil)
	}

	c.chunkMu.Lock()
	defer c.chunkMu.Unlock()
	return c.reg.registerAlias(alias, target)
}

func (c *Controller) register(name string, kind Kind, units float64, initial any) (*Descriptor, error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.state != stateConfiguring {
		return nil, newErr(WrongLifecycle, "register", nil)
	}

	c.chunkMu.Lock()
	defer c.chunkMu.Unlock()
	d, err := c.reg.register(name, kind, units, initial)
	if err != nil {
		return nil, err
	}
	c.lastValue[d.ID] = initial
	return d, nil
}

// --- Lifecycle transitions ---

func (c *Controller) StartRecording() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.state != stateConfiguring {
		return newErr(WrongLifecycle, "startRecording", nil)
	}

	c.clock.Start()

	c.chunkMu.Lock()
	c.nextChunkID = 1
	c.open = newChunk(c.nextChunkID, 0)
	c.chunkOpenedAt = 0
	c.chunkMu.Unlock()

	c.state = stateRecording
	c.logger.Info("journal recording started")
	return nil
}

// FinishRecording seals any remaining Open chunk, waits for the drain
// goroutine to persist everything already submitted (up to
// Config.FinishDrainTimeout), and transitions to Finished. Sampling and
// GetLifeTimeInMicroseconds remain valid after Finished; further updates
// and registrations are rejected.
func (c *Controller) FinishRecording(ctx context.Context) error {
	c.lifecycleMu.Lock()
	if c.state != stateRecording {
		c.lifecycleMu.Unlock()
		return newErr(WrongLifecycle, "finishRecording", nil)
	}
	c.state = stateFinished
	c.lifecycleMu.Unlock()

	c.sealOpenChunk()

	deadline, cancel := context.WithTimeout(ctx, c.cfg.FinishDrainTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.drain.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return newErr(StorageFailure, "finishRecording", err)
		}
		return nil
	case <-deadline.Done():
		c.logger.Warn("finishRecording drain deadline exceeded")
		return newErr(StorageFailure, "finishRecording", deadline.Err())
	}
}

// Close stops the background scheduler. It does not drain pending chunks;
// call FinishRecording first if durability of the tail matters.
func (c *Controller) Close() error {
	if err := c.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("journal: scheduler shutdown: %w", err)
	}
	return c.sink.Close()
}

// GetLifeTimeInMicroseconds returns elapsed microseconds since
// StartRecording, using the monotonic Clock (spec.md §4.1).
func (c *Controller) GetLifeTimeInMicroseconds() uint64 {
	return c.clock.Now()
}

// --- Updates (Recording only) ---
//
// Updates are keyed by variable id, not name: a driver resolves a
// variable's id once, at registration time, and every hot-path update
// after that skips the name lookup entirely. *Controller satisfies
// driver.UpdateSink directly via these four methods.

func (c *Controller) UpdateBool(id uint32, value bool) error {
	return c.update(id, KindBoolean, value)
}

func (c *Controller) UpdateInteger(id uint32, value int64) error {
	return c.update(id, KindInteger, value)
}

func (c *Controller) UpdateDouble(id uint32, value float64) error {
	return c.update(id, KindDouble, value)
}

func (c *Controller) UpdateString(id uint32, value string) error {
	return c.update(id, KindString, value)
}

func (c *Controller) update(id uint32, kind Kind, value any) error {
	c.lifecycleMu.Lock()
	recording := c.state == stateRecording
	c.lifecycleMu.Unlock()
	if !recording {
		return newErr(WrongLifecycle, "update", nil)
	}

	c.chunkMu.Lock()
	defer c.chunkMu.Unlock()

	d, err := c.reg.byIDLookup(id)
	if err != nil {
		return err
	}
	if d.Kind != kind {
		return newErr(WrongKind, "update", nil)
	}

	ts := c.clock.Now()
	entry, ok := c.lastValue[d.ID]
	if !ok {
		entry = d.Initial
	}
	c.open.recordUpdate(d.ID, d.Kind, d.Units, ts, value, entry)
	c.lastValue[d.ID] = value
	return nil
}

// --- Sealing and draining ---

func (c *Controller) sealIfNeeded() {
	c.chunkMu.RLock()
	if c.open == nil {
		c.chunkMu.RUnlock()
		return
	}
	size := c.open.byteSize
	age := time.Duration(c.clock.Now()-c.chunkOpenedAt) * time.Microsecond
	shouldSeal := c.policy.ShouldSeal(size, age)
	c.chunkMu.RUnlock()

	if shouldSeal {
		c.sealOpenChunk()
	}
}

// sealOpenChunk seals the current Open chunk, opens a fresh one seeded
// from the same cross-chunk last-value map, and submits the sealed chunk
// to the drain group for persistence. Submission blocks only if a
// previous chunk's persist is still in flight (drain's limit of 1),
// giving the single-writer discipline spec.md §5 requires without a
// separate worker goroutine and channel.
func (c *Controller) sealOpenChunk() {
	c.chunkMu.Lock()
	if c.open == nil {
		c.chunkMu.Unlock()
		return
	}
	sealed := c.open
	now := c.clock.Now()
	sealed.seal(now)

	c.nextChunkID++
	c.open = newChunk(c.nextChunkID, now)
	c.chunkOpenedAt = now
	c.chunkMu.Unlock()

	if len(sealed.vars) == 0 {
		return // nothing recorded in this interval; no point draining an empty chunk
	}

	c.drain.Go(func() error {
		encoded := sealed.encode()
		if err := c.sink.Persist(sealed.ID, sealed.TStart, sealed.TEnd, encoded); err != nil {
			c.logger.Error("chunk persist failed", "chunk", sealed.ID, "error", err)
			return err
		}
		c.buffer.push(sealed)
		return nil
	})
}

// resolveKind adapts the registry to the kindOf signature chunk wire
// decoding needs.
func (c *Controller) resolveKind(id uint32) (Kind, float64, error) {
	c.chunkMu.RLock()
	defer c.chunkMu.RUnlock()
	d, err := c.reg.byIDLookup(id)
	if err != nil {
		return 0, 0, err
	}
	return d.Kind, d.Units, nil
}
