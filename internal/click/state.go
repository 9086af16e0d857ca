package click

import (
	"fmt"
	"sync"
)

// Phase is a step of one synthesis run
type Phase int

const (
	PhaseConfigured Phase = iota
	PhaseResolved
	PhaseRendering
	PhaseFinalized
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseConfigured:
		return "configured"
	case PhaseResolved:
		return "resolved"
	case PhaseRendering:
		return "rendering"
	case PhaseFinalized:
		return "finalized"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Terminal reports whether no further transitions are possible
func (p Phase) Terminal() bool {
	return p == PhaseFinalized || p == PhaseFailed
}

// State tracks the progress of a run
type State struct {
	phase  Phase
	frames int
	err    error
	mu     sync.Mutex
}

// NewState creates a state in PhaseConfigured
func NewState() *State {
	return &State{phase: PhaseConfigured}
}

// Phase returns the current phase
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Frames returns the number of frames rendered so far
func (s *State) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Err returns the error that failed the run, if any
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// advance moves one step forward; anything else is ignored
func (s *State) advance(next Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() || next != s.phase+1 || next == PhaseFailed {
		return false
	}
	s.phase = next
	return true
}

func (s *State) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return
	}
	s.phase = PhaseFailed
	s.err = err
}

func (s *State) addFrames(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames += n
}
