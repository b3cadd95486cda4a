package sink

import (
    "context"
    "sync"
    "time"

    "github.com/rs/zerolog"
    "golang.org/x/time/rate"

    "paneplan/internal/metrics"
    "paneplan/internal/model"
    "paneplan/internal/store"
)

// Worker persists generated schedules off the request path. Results are
// queued by Enqueue and flushed on a ticker; a failed save is retried with
// exponential backoff up to MaxAttempts before it is dropped.
type Worker struct {
    Store       store.Store
    Log         zerolog.Logger
    Interval    time.Duration
    MaxAttempts int
    Limiter     *rate.Limiter
    Stop        chan struct{}
    // OnResult, when set, observes the terminal outcome of each save.
    OnResult func(accountID string, saved bool)

    mu    sync.Mutex
    queue []*pending
    done  sync.WaitGroup
}

type pending struct {
    res      *model.ScheduleResult
    attempts int
    notAfter time.Time
}

func NewWorker(s store.Store, log zerolog.Logger, interval time.Duration, ratePerSec float64, burst int) *Worker {
    if interval <= 0 { interval = time.Second }
    if ratePerSec <= 0 { ratePerSec = 5 }
    if burst <= 0 { burst = 10 }
    return &Worker{
        Store:       s,
        Log:         log,
        Interval:    interval,
        MaxAttempts: 5,
        Limiter:     rate.NewLimiter(rate.Limit(ratePerSec), burst),
        Stop:        make(chan struct{}),
    }
}

// Enqueue hands a result to the worker. Never blocks the caller.
func (w *Worker) Enqueue(res *model.ScheduleResult) {
    w.mu.Lock()
    w.queue = append(w.queue, &pending{res: res, notAfter: time.Now()})
    w.mu.Unlock()
}

func (w *Worker) Start() {
    w.done.Add(1)
    go func() {
        defer w.done.Done()
        ticker := time.NewTicker(w.Interval)
        defer ticker.Stop()
        for {
            select {
            case <-w.Stop:
                w.processOnce() // final drain
                return
            case <-ticker.C:
                w.processOnce()
            }
        }
    }()
}

// Shutdown stops the loop after one final drain pass.
func (w *Worker) Shutdown() {
    close(w.Stop)
    w.done.Wait()
}

func (w *Worker) processOnce() {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    now := time.Now()
    w.mu.Lock()
    due := []*pending{}
    rest := w.queue[:0]
    for _, p := range w.queue {
        if p.notAfter.After(now) { rest = append(rest, p); continue }
        due = append(due, p)
    }
    w.queue = rest
    w.mu.Unlock()
    for i, p := range due {
        if err := w.Limiter.Wait(ctx); err != nil {
            // drain window closed before the whole batch went through;
            // everything not yet attempted goes back for the next tick
            for _, q := range due[i:] {
                w.requeue(q)
            }
            return
        }
        err := w.Store.SaveScheduleResult(ctx, p.res)
        if err == nil {
            metrics.SinkPersists.WithLabelValues("ok").Inc()
            if w.OnResult != nil { w.OnResult(p.res.AccountID, true) }
            continue
        }
        p.attempts++
        if p.attempts >= w.MaxAttempts {
            metrics.SinkPersists.WithLabelValues("dropped").Inc()
            w.Log.Error().Err(err).Str("account", p.res.AccountID).Int("attempts", p.attempts).Msg("schedule persist dropped")
            if w.OnResult != nil { w.OnResult(p.res.AccountID, false) }
            continue
        }
        metrics.SinkPersists.WithLabelValues("retry").Inc()
        p.notAfter = now.Add(nextBackoff(p.attempts))
        w.Log.Warn().Err(err).Str("account", p.res.AccountID).Int("attempts", p.attempts).Msg("schedule persist failed, will retry")
        w.requeue(p)
    }
}

func (w *Worker) requeue(p *pending) {
    w.mu.Lock()
    w.queue = append(w.queue, p)
    w.mu.Unlock()
}

func nextBackoff(attempts int) time.Duration {
    if attempts < 0 { attempts = 0 }
    if attempts > 6 { attempts = 6 }
    base := time.Second * time.Duration(1<<attempts)
    if base > time.Minute { base = time.Minute }
    return base
}
