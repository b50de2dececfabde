// Package lifecycle gives asynchronous code a single source of truth for
// whether its owner (a view, a screen, the app itself) is still allowed to
// observe results and mutate state. Work started while an owner was live can
// settle after the owner is torn down; the coordinator makes that settlement
// a no-op instead of a stale mutation.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AppState mirrors the process-level foreground state.
type AppState string

const (
	AppActive     AppState = "active"
	AppInactive   AppState = "inactive"
	AppBackground AppState = "background"
)

// Kind categorises tracked operations for ids and logs.
type Kind string

const (
	KindFetch     Kind = "fetch"
	KindMutation  Kind = "mutation"
	KindAnimation Kind = "animation"
	KindTimer     Kind = "timer"
	KindOther     Kind = "other"
)

// ErrNotMounted is returned when work is registered against an owner that has
// already been torn down. That is a programming error in the caller and is
// surfaced rather than swallowed.
var ErrNotMounted = errors.New("lifecycle: owner is not mounted")

// State is a snapshot of the owner's lifecycle.
type State struct {
	Mounted   bool
	Focused   bool
	Visible   bool
	App       AppState
	LastFocus time.Time
	LastBlur  time.Time
}

// Conditions selects which lifecycle facts must hold for a gated call to run.
type Conditions struct {
	Mounted bool
	Focused bool
	Visible bool
	Active  bool
}

type tracked struct {
	id      string
	kind    Kind
	cleanup func()
}

// Coordinator tracks one owner's lifecycle and the async operations running
// on its behalf. Once Unmount has run, no further state mutation is applied
// and every still-pending operation's cleanup is invoked exactly once.
type Coordinator struct {
	log *slog.Logger
	now func() time.Time

	mu    sync.Mutex
	state State
	ops   map[string]*tracked
	seq   map[Kind]int
}

func New(log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		log: log,
		now: time.Now,
		state: State{
			App: AppInactive,
		},
		ops: make(map[string]*tracked),
		seq: make(map[Kind]int),
	}
}

// Mount marks the owner live and visible. Idempotent.
func (c *Coordinator) Mount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mounted {
		return
	}
	c.state.Mounted = true
	c.state.Visible = true
	c.state.App = AppActive
}

// Unmount is the terminal transition: it flips the gate, runs every
// registered cleanup exactly once, and clears the registry. Further lifecycle
// mutations are no-ops.
func (c *Coordinator) Unmount() {
	c.mu.Lock()
	if !c.state.Mounted {
		c.mu.Unlock()
		return
	}
	c.state.Mounted = false
	c.state.Visible = false
	c.state.Focused = false
	pending := make([]*tracked, 0, len(c.ops))
	for _, op := range c.ops {
		pending = append(pending, op)
	}
	c.ops = make(map[string]*tracked)
	c.mu.Unlock()

	for _, op := range pending {
		if op.cleanup != nil {
			op.cleanup()
		}
		c.log.Debug("cleaned up operation at unmount", "id", op.id, "kind", op.kind)
	}
}

// SetFocused records focus/blur with timestamps. Ignored when unmounted.
func (c *Coordinator) SetFocused(focused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Mounted {
		return
	}
	c.state.Focused = focused
	if focused {
		c.state.LastFocus = c.now()
	} else {
		c.state.LastBlur = c.now()
	}
}

// SetAppState records the process foreground state; visibility is derived
// from it. Ignored when unmounted.
func (c *Coordinator) SetAppState(s AppState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Mounted {
		return
	}
	c.state.App = s
	c.state.Visible = s == AppActive
}

// Snapshot returns the current lifecycle state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Admits reports whether every requested condition currently holds.
func (c *Coordinator) Admits(conds Conditions) bool {
	s := c.Snapshot()
	if conds.Mounted && !s.Mounted {
		return false
	}
	if conds.Focused && !s.Focused {
		return false
	}
	if conds.Visible && !s.Visible {
		return false
	}
	if conds.Active && s.App != AppActive {
		return false
	}
	return true
}

// Track registers an in-flight operation. It returns ErrNotMounted if the
// owner is already torn down, otherwise a done func the caller must invoke on
// settlement (success or failure) to release the bookkeeping entry. cleanup,
// if non-nil, is invoked by Unmount for operations still pending at teardown.
func (c *Coordinator) Track(kind Kind, cleanup func()) (done func(), err error) {
	c.mu.Lock()
	if !c.state.Mounted {
		c.mu.Unlock()
		return nil, ErrNotMounted
	}
	c.seq[kind]++
	id := fmt.Sprintf("%s-%d", kind, c.seq[kind])
	c.ops[id] = &tracked{id: id, kind: kind, cleanup: cleanup}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.ops, id)
			c.mu.Unlock()
		})
	}, nil
}

// Run tracks fn for the duration of its execution and propagates its error
// verbatim. Contrast with SafeRun, which swallows failures.
func (c *Coordinator) Run(kind Kind, fn func() error) error {
	done, err := c.Track(kind, nil)
	if err != nil {
		return err
	}
	defer done()
	return fn()
}

// SafeRun is the best-effort wrapper: it refuses to start unless the owner is
// mounted and visible, and any failure from fn is logged and reported as
// (nil, false) rather than propagated. Callers that need the error must use
// Run instead; the two deliberately do not behave the same.
func (c *Coordinator) SafeRun(kind Kind, fn func() (any, error)) (any, bool) {
	if !c.Admits(Conditions{Mounted: true, Visible: true}) {
		return nil, false
	}
	done, err := c.Track(kind, nil)
	if err != nil {
		return nil, false
	}
	defer done()
	v, err := fn()
	if err != nil {
		c.log.Warn("best-effort operation failed", "kind", kind, "err", err)
		return nil, false
	}
	return v, true
}

// Guard runs fn synchronously if the requested conditions hold, reporting
// whether it ran.
func (c *Coordinator) Guard(conds Conditions, fn func()) bool {
	if !c.Admits(conds) {
		return false
	}
	fn()
	return true
}

// Debounce schedules fn after d, tracked as a timer operation: if the owner
// unmounts first the timer is stopped instead of firing into a dead owner.
// When it does fire, fn still runs through the mounted gate. The returned
// cancel stops the timer early.
func (c *Coordinator) Debounce(d time.Duration, fn func()) (cancel func(), err error) {
	var (
		tmu   sync.Mutex
		timer *time.Timer
	)
	stop := func() {
		tmu.Lock()
		if timer != nil {
			timer.Stop()
		}
		tmu.Unlock()
	}
	done, err := c.Track(KindTimer, stop)
	if err != nil {
		return nil, err
	}
	tmu.Lock()
	timer = time.AfterFunc(d, func() {
		defer done()
		c.Guard(Conditions{Mounted: true}, fn)
	})
	tmu.Unlock()
	return func() {
		stop()
		done()
	}, nil
}

// Pending reports the number of tracked operations, for tests and debugging.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}
