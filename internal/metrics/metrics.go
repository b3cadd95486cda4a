package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // ScheduleRuns counts schedule generations by outcome
    ScheduleRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "schedule_runs_total", Help: "Schedule generations by outcome."},
        []string{"outcome"},
    )
    // ScheduleRunDuration records schedule generation wall time
    ScheduleRunDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "schedule_run_seconds", Help: "Schedule generation duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}},
    )
    // CustomersScheduled tracks placement outcomes per run
    CustomersScheduled = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "schedule_customers_total", Help: "Customers by placement outcome."},
        []string{"outcome"}, // scheduled, unscheduled, excluded
    )
    // TravelSaved accumulates estimated travel minutes saved by sequencing
    TravelSaved = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "schedule_travel_saved_minutes_total", Help: "Estimated travel minutes saved by route sequencing."},
    )
    // SinkPersists counts async schedule persistence attempts by status
    SinkPersists = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "sink_persists_total", Help: "Async schedule persistence attempts by status."},
        []string{"status"},
    )
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(ScheduleRuns)
        Registry.MustRegister(ScheduleRunDuration)
        Registry.MustRegister(CustomersScheduled)
        Registry.MustRegister(TravelSaved)
        Registry.MustRegister(SinkPersists)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
