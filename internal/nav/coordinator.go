// Package nav debounces and serialises navigation requests so rapid repeated
// input (double presses, stacked key events) produces a single transition
// instead of duplicate or conflicting ones.
package nav

import (
	"log/slog"
	"sync"
	"time"
)

// Action is the kind of transition being requested.
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionBack     Action = "back"
	ActionReplace  Action = "replace"
	ActionReset    Action = "reset"
)

// Request is one transition request. Transient: it is consulted against the
// previous request for duplicate suppression and then discarded.
type Request struct {
	Action Action
	Target string
}

// Navigator is the underlying transition surface, implemented by the view
// stack. The coordinator never defines or alters the stack's own state.
type Navigator interface {
	Navigate(target string) error
	Back() error
	Replace(target string) error
	Reset(target string) error
}

const (
	// DebounceWindow suppresses an identical action+target repeated within it.
	DebounceWindow = 300 * time.Millisecond
	// SettleWindow is a conservative fixed bound on how long a transition is
	// considered in flight. It is not an event-driven completion signal.
	SettleWindow = time.Second
	// BatchStagger spaces sequential execution of batched requests.
	BatchStagger = 100 * time.Millisecond
)

// Coordinator applies debounce and in-flight suppression in front of a
// Navigator.
type Coordinator struct {
	log      *slog.Logger
	nav      Navigator
	debounce time.Duration
	settle   time.Duration
	stagger  time.Duration
	now      func() time.Time

	mu          sync.Mutex
	navigating  bool
	last        Request
	lastAt      time.Time
	queue       []Request
	draining    bool
	settleTimer *time.Timer
}

func New(nav Navigator, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		log:      log,
		nav:      nav,
		debounce: DebounceWindow,
		settle:   SettleWindow,
		stagger:  BatchStagger,
		now:      time.Now,
	}
}

// Navigate requests a forward transition to target. Reports whether the
// underlying navigation was executed.
func (c *Coordinator) Navigate(target string) bool {
	return c.request(Request{Action: ActionNavigate, Target: target})
}

// Back requests a backward transition.
func (c *Coordinator) Back() bool {
	return c.request(Request{Action: ActionBack})
}

// Replace swaps the current location for target.
func (c *Coordinator) Replace(target string) bool {
	return c.request(Request{Action: ActionReplace, Target: target})
}

// Reset clears history down to target.
func (c *Coordinator) Reset(target string) bool {
	return c.request(Request{Action: ActionReset, Target: target})
}

// Batch enqueues requests for sequential execution spaced by the stagger
// interval. Direct requests are suppressed while the queue drains.
func (c *Coordinator) Batch(reqs []Request) {
	if len(reqs) == 0 {
		return
	}
	c.mu.Lock()
	c.queue = append(c.queue, reqs...)
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	c.navigating = true
	c.mu.Unlock()
	go c.drain()
}

// Busy reports whether a transition is currently in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigating
}

// Settled tells the coordinator the transition has been applied, clearing the
// in-flight flag ahead of the settle ceiling. Navigators that apply
// transitions synchronously should call this right after each dispatch;
// otherwise the ceiling clears the flag on its own.
func (c *Coordinator) Settled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draining {
		return
	}
	c.navigating = false
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
}

func (c *Coordinator) request(r Request) bool {
	c.mu.Lock()
	now := c.now()
	if c.navigating {
		c.mu.Unlock()
		c.log.Debug("navigation dropped: transition in flight", "action", r.Action, "target", r.Target)
		return false
	}
	if c.last == r && now.Sub(c.lastAt) < c.debounce {
		c.mu.Unlock()
		c.log.Debug("navigation dropped: duplicate within debounce window", "action", r.Action, "target", r.Target)
		return false
	}
	c.navigating = true
	c.last = r
	c.lastAt = now
	c.mu.Unlock()

	err := c.dispatch(r)
	if err != nil {
		c.log.Warn("navigation failed", "action", r.Action, "target", r.Target, "err", err)
		// No transition happened, so there is nothing to wait out.
		c.mu.Lock()
		c.navigating = false
		c.mu.Unlock()
		return false
	}
	c.armSettle()
	return true
}

// drain executes queued requests one at a time with the stagger between them,
// then arms the settle timer so direct requests resume afterwards.
func (c *Coordinator) drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.mu.Unlock()
			c.armSettle()
			return
		}
		r := c.queue[0]
		c.queue = c.queue[1:]
		c.last = r
		c.lastAt = c.now()
		c.mu.Unlock()

		if err := c.dispatch(r); err != nil {
			c.log.Warn("batched navigation failed", "action", r.Action, "target", r.Target, "err", err)
		}
		time.Sleep(c.stagger)
	}
}

func (c *Coordinator) armSettle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.settleTimer = time.AfterFunc(c.settle, func() {
		c.mu.Lock()
		if !c.draining {
			c.navigating = false
		}
		c.mu.Unlock()
	})
}

func (c *Coordinator) dispatch(r Request) error {
	switch r.Action {
	case ActionBack:
		return c.nav.Back()
	case ActionReplace:
		return c.nav.Replace(r.Target)
	case ActionReset:
		return c.nav.Reset(r.Target)
	default:
		return c.nav.Navigate(r.Target)
	}
}
