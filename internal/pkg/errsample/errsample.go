package errsample

import (
	"fmt"
	"sync"
)

// DefaultCap is the number of error strings a run keeps for its summary.
const DefaultCap = 10

// Sample counts every error but keeps only the first Cap messages.
// Safe for concurrent use.
type Sample struct {
	mu    sync.Mutex
	cap   int
	items []string
	count int
}

func New(cap int) *Sample {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Sample{cap: cap, items: []string{}}
}

func (s *Sample) Addf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if len(s.items) < s.cap {
		s.items = append(s.items, fmt.Sprintf(format, args...))
	}
}

// Count is the number of errors added, including dropped ones.
func (s *Sample) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Sample) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.items...)
}
