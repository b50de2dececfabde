package tui

import (
	"fmt"
	"sync"
)

// viewStack is the navigation history. It applies transitions synchronously
// and reports each applied transition through the settled callback so the
// route coordinator can release its in-flight hold early.
type viewStack struct {
	mu      sync.Mutex
	stack   []string
	settled func()
}

func newViewStack(root string) *viewStack {
	return &viewStack{stack: []string{root}}
}

func (s *viewStack) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack[len(s.stack)-1]
}

func (s *viewStack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

func (s *viewStack) Navigate(target string) error {
	s.mu.Lock()
	if s.stack[len(s.stack)-1] != target {
		s.stack = append(s.stack, target)
	}
	s.mu.Unlock()
	s.settle()
	return nil
}

func (s *viewStack) Back() error {
	s.mu.Lock()
	if len(s.stack) == 1 {
		s.mu.Unlock()
		s.settle()
		return fmt.Errorf("already at root view")
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.mu.Unlock()
	s.settle()
	return nil
}

func (s *viewStack) Replace(target string) error {
	s.mu.Lock()
	s.stack[len(s.stack)-1] = target
	s.mu.Unlock()
	s.settle()
	return nil
}

func (s *viewStack) Reset(target string) error {
	s.mu.Lock()
	s.stack = []string{target}
	s.mu.Unlock()
	s.settle()
	return nil
}

func (s *viewStack) settle() {
	if s.settled != nil {
		s.settled()
	}
}
