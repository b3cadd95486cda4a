package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"paneplan/internal/model"
	"paneplan/internal/store"
)

type flakyStore struct {
	*store.Memory
	mu       sync.Mutex
	failures int
	saves    int
}

func (f *flakyStore) SaveScheduleResult(ctx context.Context, res *model.ScheduleResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.failures > 0 {
		f.failures--
		return errors.New("transient")
	}
	return f.Memory.SaveScheduleResult(ctx, res)
}

func testWorker(s store.Store) *Worker {
	return &Worker{
		Store:       s,
		Log:         zerolog.Nop(),
		Interval:    time.Second,
		MaxAttempts: 3,
		Limiter:     rate.NewLimiter(rate.Inf, 1),
		Stop:        make(chan struct{}),
	}
}

func result(account string) *model.ScheduleResult {
	return &model.ScheduleResult{
		AccountID: account,
		Routes:    map[string]model.DailyRoute{"2026-03-04": {Date: "2026-03-04", Day: "Wednesday", TotalJobs: 2}},
	}
}

func TestWorkerPersistsQueuedResult(t *testing.T) {
	mem := store.NewMemory()
	w := testWorker(mem)
	w.Enqueue(result("acct-1"))
	w.processOnce()
	r, err := mem.RouteForDate(context.Background(), "acct-1", "2026-03-04")
	if err != nil {
		t.Fatalf("route not persisted: %v", err)
	}
	if r.TotalJobs != 2 {
		t.Fatalf("unexpected route: %+v", r)
	}
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	fs := &flakyStore{Memory: store.NewMemory(), failures: 1}
	w := testWorker(fs)
	w.Enqueue(result("acct-1"))
	w.processOnce()
	if _, err := fs.Memory.RouteForDate(context.Background(), "acct-1", "2026-03-04"); err == nil {
		t.Fatalf("save should have failed the first time")
	}
	// the retry is scheduled with backoff; force it due
	w.mu.Lock()
	for _, p := range w.queue {
		p.notAfter = time.Now().Add(-time.Second)
	}
	w.mu.Unlock()
	w.processOnce()
	if _, err := fs.Memory.RouteForDate(context.Background(), "acct-1", "2026-03-04"); err != nil {
		t.Fatalf("retry did not persist: %v", err)
	}
	if fs.saves != 2 {
		t.Fatalf("expected 2 save attempts, got %d", fs.saves)
	}
}

func TestWorkerDropsAfterMaxAttempts(t *testing.T) {
	fs := &flakyStore{Memory: store.NewMemory(), failures: 100}
	w := testWorker(fs)
	w.MaxAttempts = 2
	w.Enqueue(result("acct-1"))
	for i := 0; i < 3; i++ {
		w.mu.Lock()
		for _, p := range w.queue {
			p.notAfter = time.Now().Add(-time.Second)
		}
		w.mu.Unlock()
		w.processOnce()
	}
	w.mu.Lock()
	left := len(w.queue)
	w.mu.Unlock()
	if left != 0 {
		t.Fatalf("expected queue drained after drop, %d left", left)
	}
	if fs.saves != 2 {
		t.Fatalf("expected exactly MaxAttempts saves, got %d", fs.saves)
	}
}

func TestWorkerRequeuesBatchOnLimiterError(t *testing.T) {
	mem := store.NewMemory()
	w := testWorker(mem)
	// zero burst makes Wait fail immediately, as a timed-out drain would
	w.Limiter = rate.NewLimiter(rate.Limit(1), 0)
	w.Enqueue(result("acct-1"))
	w.Enqueue(result("acct-2"))
	w.Enqueue(result("acct-3"))
	w.processOnce()
	w.mu.Lock()
	left := len(w.queue)
	w.mu.Unlock()
	if left != 3 {
		t.Fatalf("limiter error must not lose pending results, %d of 3 left", left)
	}
	w.Limiter = rate.NewLimiter(rate.Inf, 1)
	w.processOnce()
	for _, acct := range []string{"acct-1", "acct-2", "acct-3"} {
		if _, err := mem.RouteForDate(context.Background(), acct, "2026-03-04"); err != nil {
			t.Fatalf("%s not persisted after recovery: %v", acct, err)
		}
	}
}

func TestWorkerShutdownDrains(t *testing.T) {
	mem := store.NewMemory()
	w := testWorker(mem)
	w.Interval = time.Hour // only the final drain can flush
	w.Start()
	w.Enqueue(result("acct-1"))
	w.Shutdown()
	if _, err := mem.RouteForDate(context.Background(), "acct-1", "2026-03-04"); err != nil {
		t.Fatalf("shutdown drain did not persist: %v", err)
	}
}

func TestNextBackoffCapped(t *testing.T) {
	if nextBackoff(1) != 2*time.Second {
		t.Fatalf("unexpected backoff: %v", nextBackoff(1))
	}
	if nextBackoff(20) != time.Minute {
		t.Fatalf("backoff not capped: %v", nextBackoff(20))
	}
}
