package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/nhle/clinic-chat/internal/backend"
	"github.com/nhle/clinic-chat/internal/model"
)

var testUser = model.User{ID: "u1", Name: "Ana", Type: "medico"}

func ts(sec int) string {
	return fmt.Sprintf("2024-03-01T10:%02d:%02dZ", sec/60, sec%60)
}

func msg(room string, sec int, sender, text string) model.Message {
	return model.Message{ChannelID: room, Sender: sender, Text: text, Timestamp: ts(sec)}
}

// fakeBackend is an in-memory server. Gates, when set, hold a channel's
// ListMessages call until they are closed. The summary gate holds the next
// GetUnreadSummary call, answering with the counts seen when it arrived.
type fakeBackend struct {
	mu          gosync.Mutex
	messages    map[string][]model.Message
	unread      map[string]int
	gates       map[string]chan struct{}
	entered     chan string
	listErr     error
	sendErr     error
	createdOnly bool
	emptySends  bool
	summaryGate chan struct{}
	nextSec     int
	calls       []string
	marks       []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		messages: make(map[string][]model.Message),
		unread:   make(map[string]int),
		gates:    make(map[string]chan struct{}),
		entered:  make(chan string, 16),
		nextSec:  100,
	}
}

func (f *fakeBackend) seed(room string, msgs ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[room] = append(f.messages[room], msgs...)
}

func (f *fakeBackend) gate(room string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[room] = ch
	return ch
}

func (f *fakeBackend) gateSummary() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryGate = make(chan struct{})
	return f.summaryGate
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) wait(ctx context.Context, room string) error {
	f.mu.Lock()
	gate := f.gates[room]
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	f.entered <- room
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) ListMessages(ctx context.Context, room string) ([]model.Message, error) {
	f.record("list:" + room)
	if err := f.wait(ctx, room); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Message(nil), f.messages[room]...), nil
}

func (f *fakeBackend) ListMessagesSince(ctx context.Context, room, after string) ([]model.Message, error) {
	f.record("since:" + room + "@" + after)
	if err := f.wait(ctx, room); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Message
	for _, m := range f.messages[room] {
		if compareTimestamps(m.Timestamp, after) > 0 {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeBackend) SendMessage(_ context.Context, room, sender, text string) (backend.SendResult, error) {
	f.record("send:" + room)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return backend.SendResult{}, f.sendErr
	}
	m := msg(room, f.nextSec, sender, text)
	f.nextSec++
	f.messages[room] = append(f.messages[room], m)
	if f.createdOnly {
		return backend.SendResult{Created: &m}, nil
	}
	if f.emptySends {
		return backend.SendResult{Authoritative: true}, nil
	}
	return backend.SendResult{
		Messages:      append([]model.Message(nil), f.messages[room]...),
		Authoritative: true,
	}, nil
}

func (f *fakeBackend) MarkAsRead(_ context.Context, room, userID, last string) error {
	f.record("mark:" + room + "@" + last)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, room+"@"+last)
	delete(f.unread, room)
	return nil
}

func (f *fakeBackend) GetUnreadSummary(_ context.Context, userID string) ([]backend.UnreadEntry, error) {
	f.record("summary")
	f.mu.Lock()
	out := make([]backend.UnreadEntry, 0, len(f.unread))
	for room, n := range f.unread {
		out = append(out, backend.UnreadEntry{ChannelID: room, Count: n})
	}
	gate := f.summaryGate
	f.summaryGate = nil
	f.mu.Unlock()

	if gate != nil {
		f.entered <- "summary"
		<-gate
	}
	return out, nil
}

func (f *fakeBackend) ListUsers(context.Context) ([]model.User, error) {
	return []model.User{testUser}, nil
}

// recorder captures render batches, channel lists and status reports.
type recorder struct {
	mu       gosync.Mutex
	batches  []RenderBatch
	lists    [][]model.Channel
	statuses []Status
}

func (r *recorder) Render(b RenderBatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
}

func (r *recorder) RenderChannels(ch []model.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, ch)
}

func (r *recorder) Report(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) renders() []RenderBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RenderBatch(nil), r.batches...)
}

func (r *recorder) reports() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func (r *recorder) last() RenderBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return RenderBatch{}
	}
	return r.batches[len(r.batches)-1]
}

// countingMetrics records observations.
type countingMetrics struct {
	mu        gosync.Mutex
	stale     int
	intervals []time.Duration
	fetches   map[FetchKind]int
}

func (m *countingMetrics) ObserveFetch(kind FetchKind, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetches == nil {
		m.fetches = make(map[FetchKind]int)
	}
	m.fetches[kind]++
}

func (m *countingMetrics) ObserveSubmit(time.Duration, error) {}

func (m *countingMetrics) ObserveStale(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale++
}

func (m *countingMetrics) ObserveInterval(_ Mode, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intervals = append(m.intervals, d)
}

func (m *countingMetrics) ObserveUnread(int) {}

func (m *countingMetrics) staleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale
}

func (m *countingMetrics) intervalLog() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.intervals...)
}

type testEngine struct {
	*Engine
	backend *fakeBackend
	rec     *recorder
	metrics *countingMetrics
	clock   *clocktesting.FakeClock
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	fb := newFakeBackend()
	rec := &recorder{}
	metrics := &countingMetrics{}
	clk := clocktesting.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	e := NewEngine(Options{
		Backend:        fb,
		Renderer:       rec,
		Status:         rec,
		Metrics:        metrics,
		Clock:          clk,
		User:           testUser,
		RequestTimeout: 5 * time.Second,
	})
	t.Cleanup(func() { _ = e.Stop() })
	return &testEngine{Engine: e, backend: fb, rec: rec, metrics: metrics, clock: clk}
}
