package remote

import (
	"sync"
	"time"

	"github.com/open-teleop/joyteleop/pkg/mir"
	"github.com/open-teleop/joyteleop/pkg/processing"
)

// Entry is one recorded remote call.
type Entry struct {
	Kind       string        `json:"kind"`
	At         time.Time     `json:"at"`
	Duration   time.Duration `json:"duration_ns"`
	StatusCode int           `json:"status_code,omitempty"`
	Response   interface{}   `json:"response,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ResponseLog keeps the most recent entries in a ring buffer.
type ResponseLog struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewResponseLog creates a log holding up to size entries.
func NewResponseLog(size int) *ResponseLog {
	if size < 1 {
		size = 1
	}
	return &ResponseLog{entries: make([]Entry, size)}
}

// Record implements processing.ResultRecorder.
func (l *ResponseLog) Record(result *processing.ProcessResult) {
	e := Entry{
		Kind:     result.Name,
		At:       result.Started,
		Duration: result.Duration,
	}
	if resp, ok := result.Data.(*mir.Response); ok && resp != nil {
		e.StatusCode = resp.StatusCode
		e.Response = resp.Data
	}
	if result.Error != nil {
		e.Error = result.Error.Error()
	}
	l.Add(e)
}

// Add appends e, overwriting the oldest entry when full.
func (l *ResponseLog) Add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Entries returns the recorded entries, newest first.
func (l *ResponseLog) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.next
	if l.full {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}
