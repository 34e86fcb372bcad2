package sink

import (
	"context"
	"sync"

	"github.com/vnykmshr/goplumb/pkg/common/validation"
)

// MemorySink keeps the most recent entries in memory.
type MemorySink struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	closed   bool
}

// NewMemorySink creates a sink holding at most capacity entries. Older
// entries are dropped first.
func NewMemorySink(capacity int) (*MemorySink, error) {
	if err := validation.ValidatePositive("sink", "capacity", capacity); err != nil {
		return nil, err
	}
	return &MemorySink{capacity: capacity}, nil
}

// Write implements Sink.
func (s *MemorySink) Write(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return closedError("sink.memory")
	}
	if len(s.entries) == s.capacity {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, e)
	return nil
}

// Entries returns a copy of the stored entries, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Len returns the number of stored entries.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close implements Sink. Stored entries remain readable.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
