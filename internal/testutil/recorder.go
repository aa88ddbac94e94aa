package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/assetgrid/internal/task"
)

// ExecutionRecord holds the start and end times for a single task's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder builds tasks that sleep, optionally fail, and record when they ran.
type Recorder struct {
	mu      sync.Mutex
	records map[string][]ExecutionRecord
	order   []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make(map[string][]ExecutionRecord)}
}

// Task returns a pipe task named name that sleeps for d and then returns err.
func (r *Recorder) Task(name string, d time.Duration, err error) *task.Task {
	return &task.Task{
		Name: name,
		Kind: task.KindPipe,
		Run: func(ctx context.Context) error {
			start := time.Now()
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
			r.mu.Lock()
			r.records[name] = append(r.records[name], ExecutionRecord{Start: start, End: time.Now()})
			r.order = append(r.order, name)
			r.mu.Unlock()
			return err
		},
	}
}

// Records returns every recorded execution of name.
func (r *Recorder) Records(name string) []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ExecutionRecord(nil), r.records[name]...)
}

// Ran reports whether name finished at least once.
func (r *Recorder) Ran(name string) bool {
	return len(r.Records(name)) > 0
}

// Order returns task names in the order they finished.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Overlapped reports whether the first executions of a and b overlapped in time.
func (r *Recorder) Overlapped(a, b string) bool {
	ra, rb := r.Records(a), r.Records(b)
	if len(ra) == 0 || len(rb) == 0 {
		return false
	}
	return ra[0].Start.Before(rb[0].End) && rb[0].Start.Before(ra[0].End)
}
