// Package ops de-duplicates concurrent invocations of the same logical
// operation so the underlying work runs at most once and every caller shares
// the settled outcome. It exists because several parts of the UI can trigger
// the same remote call (e.g. two handlers both sending a magic link) within
// the same moment.
package ops

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Type tags the category of a logical operation. An in-flight result is only
// shared with a new caller when the types match; a key collision between
// different types is resolved by disambiguating the key instead.
type Type string

const (
	TypeMagicLink        Type = "magic_link"
	TypeAuthInit         Type = "auth_init"
	TypeLogout           Type = "logout"
	TypeSessionTokens    Type = "session_tokens"
	TypeConfirmMagicLink Type = "confirm_magic_link"
	TypeGoogleOAuth      Type = "google_oauth"
	TypeAppleOAuth       Type = "apple_oauth"
)

// StaleAfter bounds how long a registered operation may sit unsettled before
// the next caller touching its key evicts it and runs fresh. Cleanup is
// lazy (on access only); there is no background sweep.
const StaleAfter = 30 * time.Second

type inflight struct {
	typ     Type
	started time.Time
	done    chan struct{}
	val     any
	err     error
}

// Manager owns the key -> in-flight operation registry. Instantiate one per
// process (or per test) and pass it down; the registry is not ambient state.
type Manager struct {
	log        *slog.Logger
	staleAfter time.Duration
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflight
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:        log,
		staleAfter: StaleAfter,
		now:        time.Now,
		inflight:   make(map[string]*inflight),
	}
}

// Do executes fn under key, or joins an identical in-flight operation.
//
// The first caller for a key registers the operation before running fn and
// unregisters it when fn settles, success or failure. Callers arriving while
// the operation is registered with the same type wait for that result and
// receive it verbatim (shared=true). A caller whose type differs from the
// registered one gets a disambiguated key and runs independently. An entry
// older than the staleness window is evicted on access and the caller runs
// fresh.
//
// ctx only bounds the caller's wait when joining a shared operation; the
// underlying fn is never halted by the manager.
func (m *Manager) Do(ctx context.Context, key string, typ Type, fn func(context.Context) (any, error)) (val any, shared bool, err error) {
	if key == "" {
		return nil, false, fmt.Errorf("ops: empty operation key")
	}
	for {
		m.mu.Lock()
		if op, ok := m.inflight[key]; ok {
			age := m.now().Sub(op.started)
			if age > m.staleAfter {
				delete(m.inflight, key)
				m.mu.Unlock()
				m.log.Warn("evicting stale operation", "key", key, "type", op.typ, "age", age)
				continue
			}
			if op.typ != typ {
				m.mu.Unlock()
				m.log.Debug("operation key collision, disambiguating", "key", key, "registered", op.typ, "requested", typ)
				key = fmt.Sprintf("%s@%d", key, m.now().UnixNano())
				continue
			}
			m.mu.Unlock()
			m.log.Debug("joining in-flight operation", "key", key, "type", typ)
			select {
			case <-op.done:
				return op.val, true, op.err
			case <-ctx.Done():
				return nil, true, ctx.Err()
			}
		}

		op := &inflight{typ: typ, started: m.now(), done: make(chan struct{})}
		m.inflight[key] = op
		m.mu.Unlock()

		// Unregister on settle even if fn panics, so the key is never
		// permanently blocked for later callers.
		func() {
			defer func() {
				m.mu.Lock()
				if cur, ok := m.inflight[key]; ok && cur == op {
					delete(m.inflight, key)
				}
				m.mu.Unlock()
				close(op.done)
			}()
			op.val, op.err = fn(ctx)
		}()
		return op.val, false, op.err
	}
}

// CancelType drops every registered entry of the given type without stopping
// the underlying work: callers already waiting still get the result, but new
// callers will no longer be told the operation is in flight. Returns the
// number of entries dropped.
func (m *Manager) CancelType(typ Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, op := range m.inflight {
		if op.typ == typ {
			delete(m.inflight, k)
			n++
		}
	}
	if n > 0 {
		m.log.Debug("cancelled operations", "type", typ, "count", n)
	}
	return n
}

// HasType reports whether any operation of the given type is registered.
// Used to gate UI, e.g. disabling a send button while a magic link is
// outstanding.
func (m *Manager) HasType(typ Type) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range m.inflight {
		if op.typ == typ {
			return true
		}
	}
	return false
}
