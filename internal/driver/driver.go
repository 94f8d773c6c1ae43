// Package driver defines the narrow collaborator interfaces a machine
// driver or state machine uses to push variable updates into a journal.
// Per Non-goals ("no driver SDK loading") there is no plugin/dlopen
// loader here: drivers are opaque Go values wired in by the process that
// constructs the server, exactly like the teacher's source.Source
// implementations are wired in by its orchestrator rather than discovered
// dynamically.
package driver

import "context"

// UpdateSink is the only surface a driver needs from the journal.
// *journal.Controller satisfies this directly.
type UpdateSink interface {
	UpdateBool(id uint32, v bool) error
	UpdateInteger(id uint32, v int64) error
	UpdateDouble(id uint32, v float64) error
	UpdateString(id uint32, v string) error
}

// Driver produces variable updates for the lifetime of a build. Start must
// not block; it should launch its own goroutine(s) and return once the
// driver is ready to emit updates. Stop must be safe to call even if Start
// failed or was never called.
type Driver interface {
	Name() string
	Start(ctx context.Context, sink UpdateSink) error
	Stop(ctx context.Context) error
}
