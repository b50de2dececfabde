// Package anim serialises animations by integer priority: a higher-priority
// animation interrupts a running lower-priority one, while same-or-lower
// priority requests queue behind it and start as the running animation
// finishes.
package anim

import (
	"container/heap"
	"log/slog"
	"sync"
)

// Animation is a unit of visual work. Start begins it, Cancel interrupts it;
// both may be nil. Callers must report completion via Sequencer.Finish.
type Animation struct {
	Name     string
	Priority int
	Start    func()
	Cancel   func()
}

// Sequencer coordinates at most one running animation.
type Sequencer struct {
	log *slog.Logger

	mu      sync.Mutex
	current *Animation
	queue   animQueue
	seq     int
}

func NewSequencer(log *slog.Logger) *Sequencer {
	if log == nil {
		log = slog.Default()
	}
	return &Sequencer{log: log}
}

// Play starts a immediately when nothing is running or when a outranks the
// running animation (which is cancelled first). Otherwise a is queued.
// Reports whether a started.
func (s *Sequencer) Play(a Animation) bool {
	s.mu.Lock()
	if s.current == nil {
		run := a
		s.current = &run
		s.mu.Unlock()
		if a.Start != nil {
			a.Start()
		}
		return true
	}
	if a.Priority > s.current.Priority {
		preempted := s.current
		run := a
		s.current = &run
		s.mu.Unlock()
		s.log.Debug("animation preempted", "running", preempted.Name, "by", a.Name)
		if preempted.Cancel != nil {
			preempted.Cancel()
		}
		if a.Start != nil {
			a.Start()
		}
		return true
	}
	s.seq++
	heap.Push(&s.queue, queued{anim: a, order: s.seq})
	s.mu.Unlock()
	return false
}

// Finish marks the named animation complete and starts the highest-priority
// queued one, if any. A Finish for an animation that is no longer current
// (e.g. it was preempted) is ignored.
func (s *Sequencer) Finish(name string) {
	s.mu.Lock()
	if s.current == nil || s.current.Name != name {
		s.mu.Unlock()
		return
	}
	s.current = nil
	var next *Animation
	if s.queue.Len() > 0 {
		q := heap.Pop(&s.queue).(queued)
		run := q.anim
		s.current = &run
		next = &run
	}
	s.mu.Unlock()
	if next != nil && next.Start != nil {
		next.Start()
	}
}

// Running returns the name of the current animation, or "".
func (s *Sequencer) Running() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Name
}

// queued orders by priority descending, FIFO within a priority.
type queued struct {
	anim  Animation
	order int
}

type animQueue []queued

func (q animQueue) Len() int { return len(q) }
func (q animQueue) Less(i, j int) bool {
	if q[i].anim.Priority != q[j].anim.Priority {
		return q[i].anim.Priority > q[j].anim.Priority
	}
	return q[i].order < q[j].order
}
func (q animQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *animQueue) Push(x any)        { *q = append(*q, x.(queued)) }
func (q *animQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
