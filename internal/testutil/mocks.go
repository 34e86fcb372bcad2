package testutil

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// MockClock is a settable clock. It satisfies scheduler.Clock.
// Tests advance it instead of sleeping until jobs are due.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a clock reading start. A zero start reads the
// current wall time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t, forwards or backwards.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// MockWriter is an io.Writer for sink tests. It records what was written
// and can be told to start failing.
type MockWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	writes    int
	failAfter int
	err       error
}

// NewMockWriter creates a writer that accepts every write.
func NewMockWriter() *MockWriter {
	return &MockWriter{failAfter: -1}
}

// Write implements io.Writer.
func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.failAfter >= 0 && mw.writes >= mw.failAfter {
		return 0, mw.err
	}
	mw.writes++
	return mw.buf.Write(p)
}

// FailAfter makes every write after the first n successful ones return err.
func (mw *MockWriter) FailAfter(n int, err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.failAfter = n
	mw.err = err
}

// SetAlwaysError makes every following write fail with err.
func (mw *MockWriter) SetAlwaysError(err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.failAfter = mw.writes
	mw.err = err
}

// String returns everything written so far.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// Lines returns the non-empty lines written so far.
func (mw *MockWriter) Lines() []string {
	var lines []string
	for _, l := range strings.Split(mw.String(), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// WriteCount returns the number of successful writes.
func (mw *MockWriter) WriteCount() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.writes
}
