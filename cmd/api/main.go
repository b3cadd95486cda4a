package main

import (
    "bufio"
    "context"
    "fmt"
    "net"
    "net/http"
    "os"
    "os/signal"
    "strconv"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/rs/zerolog"

    "paneplan/internal/api"
    "paneplan/internal/config"
    "paneplan/internal/logging"
    "paneplan/internal/metrics"
)

func main() {
    _ = godotenv.Load()

    cfg, err := config.Load(os.Getenv("PANEPLAN_CONFIG"))
    if err != nil {
        fmt.Fprintf(os.Stderr, "config: %v\n", err)
        os.Exit(1)
    }
    log := logging.New(cfg.LogLevel, os.Getenv("PANEPLAN_PRETTY_LOGS") == "1")

    srvDeps, err := api.NewServer(cfg, log)
    if err != nil {
        log.Fatal().Err(err).Msg("failed to init server")
    }
    metrics.RegisterDefault()

    mux := http.NewServeMux()

    // Scheduling
    mux.HandleFunc("/v1/schedule", srvDeps.ScheduleHandler)
    mux.HandleFunc("/v1/schedule/today", srvDeps.TodayHandler)
    mux.HandleFunc("/v1/schedule/events", srvDeps.ScheduleEventsHandler)
    mux.HandleFunc("/v1/schedule/ws", srvDeps.ScheduleWSHandler)

    // Routes
    mux.HandleFunc("/v1/routes", srvDeps.RoutesIndexHandler)
    mux.HandleFunc("/v1/routes/sequence", srvDeps.SequenceHandler)

    // Account data
    mux.HandleFunc("/v1/customers", srvDeps.CustomersHandler)
    mux.HandleFunc("/v1/calendar", srvDeps.CalendarHandler)
    mux.HandleFunc("/v1/jobs/complete", srvDeps.JobCompleteHandler)

    // Admin
    mux.HandleFunc("/v1/admin/sequencer/runs", srvDeps.SequencerRunsHandler)
    mux.HandleFunc("/v1/debug", srvDeps.DebugJSON)

    // Health and metrics
    mux.HandleFunc("/healthz", srvDeps.HealthHandler)
    mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    srv := &http.Server{
        Addr:              ":" + strconv.Itoa(cfg.Port),
        Handler:           observeMiddleware(log, mux),
        ReadHeaderTimeout: 5 * time.Second,
    }

    if srvDeps.Sink != nil {
        srvDeps.Sink.Start()
    }

    go func() {
        log.Info().Str("addr", srv.Addr).Msg("API listening")
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("server error")
        }
    }()

    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    log.Info().Msg("shutting down")
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
    if srvDeps.Sink != nil {
        srvDeps.Sink.Shutdown()
    }
}

type statusWriter struct {
    http.ResponseWriter
    status int
}

func (w *statusWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
    if f, ok := w.ResponseWriter.(http.Flusher); ok {
        f.Flush()
    }
}

// Hijack lets the WebSocket upgrade through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    if h, ok := w.ResponseWriter.(http.Hijacker); ok {
        return h.Hijack()
    }
    return nil, nil, http.ErrNotSupported
}

func observeMiddleware(log zerolog.Logger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
        next.ServeHTTP(sw, r)
        dur := time.Since(start)
        status := strconv.Itoa(sw.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(dur.Seconds())
        log.Debug().
            Str("remote", r.RemoteAddr).
            Str("method", r.Method).
            Str("path", r.URL.Path).
            Str("status", status).
            Dur("duration", dur).
            Msg("request")
    })
}
