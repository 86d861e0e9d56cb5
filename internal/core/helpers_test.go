package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tracecore/pkg/domain"
)

type stubClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStubClock() *stubClock {
	return &stubClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *stubClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

func (s *stubClock) advance(d time.Duration) {
	s.mu.Lock()
	s.t = s.t.Add(d)
	s.mu.Unlock()
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) record(level, msg string) {
	c.mu.Lock()
	c.calls = append(c.calls, level+":"+msg)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.record("d", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.record("i", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.record("w", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.record("e", msg) }

func (c *captureLogger) has(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call == entry {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu      sync.Mutex
	calls   []metricsCall
	records int
	suspect int
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
	c.mu.Unlock()
}

func (c *captureMetricsRecorder) ObserveState(records, suspect int) {
	c.mu.Lock()
	c.records, c.suspect = records, suspect
	c.mu.Unlock()
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

// fakePersistence keeps the last saved snapshot in memory.
type fakePersistence struct {
	mu      sync.Mutex
	state   domain.Snapshot
	saves   int
	saveErr error
	loadErr error
	closed  bool
	// savedAfterClose is set when Save runs on a closed driver.
	savedAfterClose bool
}

func (f *fakePersistence) Load(context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return domain.Snapshot{}, f.loadErr
	}
	return domain.CloneSnapshot(f.state), nil
}

func (f *fakePersistence) Save(_ context.Context, s domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.closed {
		f.savedAfterClose = true
	}
	f.saves++
	f.state = domain.CloneSnapshot(s)
	return nil
}

func (f *fakePersistence) HasWorkspace() bool { return true }

func (f *fakePersistence) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakePersistence) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

var idSeq atomic.Int64

// sequentialIDs mints readable ids that stay unique across engines sharing a
// persistence fake.
func sequentialIDs() func() string {
	return func() string {
		return fmt.Sprintf("id-%04d", idSeq.Add(1))
	}
}

// newTestEngine builds a detached engine with a deterministic clock and ids.
// The debounce window is long enough that saves only happen on Flush.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *stubClock) {
	t.Helper()
	clk := newStubClock()
	base := []Option{
		WithClock(clk),
		WithIDGenerator(sequentialIDs()),
		WithFlushDelay(time.Hour),
	}
	e := New(append(base, opts...)...)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e, clk
}

func mustCreate(t *testing.T, e *Engine, in domain.CreateInput) domain.Requirement {
	t.Helper()
	r, err := e.Create(context.Background(), in, "tester")
	if err != nil {
		t.Fatalf("create %q: %v", in.Title, err)
	}
	return r
}

func mustLink(t *testing.T, e *Engine, source, target string, lt domain.LinkType) domain.TraceLink {
	t.Helper()
	link, found, err := e.AddLink(context.Background(), domain.LinkInput{
		SourceID:   source,
		TargetID:   target,
		LinkType:   lt,
		TargetType: domain.TargetRequirement,
	}, "tester")
	if err != nil || !found {
		t.Fatalf("add link %s -> %s: found=%v err=%v", source, target, found, err)
	}
	return link
}

func mustGet(t *testing.T, e *Engine, id string) domain.Requirement {
	t.Helper()
	r, ok := e.Get(id)
	if !ok {
		t.Fatalf("requirement %s not found", id)
	}
	return r
}

func ptr[T any](v T) *T { return &v }
