package api

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "time"

    "paneplan/internal/geo"
    "paneplan/internal/metrics"
    "paneplan/internal/model"
    "paneplan/internal/opt"
    "paneplan/internal/schedule"
    "paneplan/internal/store"
)

// ScheduleHandler handles POST /v1/schedule: generate a multi-day schedule
// for an account. Inline customers, calendar and start location override the
// stored ones; anything omitted is loaded from the store.
func (s *Server) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.ScheduleRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.AccountID == "" { req.AccountID = s.getPrincipal(r).Account }
    if err := validateScheduleRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid schedule request", err.Error(), r.URL.Path)
        return
    }
    in, err := s.scheduleInput(r, &req)
    if err != nil {
        writeProblem(w, http.StatusUnprocessableEntity, "Schedule input incomplete", err.Error(), r.URL.Path)
        return
    }
    b, err := s.builder(req.Algorithm)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid algorithm", err.Error(), r.URL.Path)
        return
    }
    start := time.Now()
    res, err := b.Build(r.Context(), in)
    metrics.ScheduleRunDuration.Observe(time.Since(start).Seconds())
    if err != nil {
        metrics.ScheduleRuns.WithLabelValues("error").Inc()
        writeProblem(w, http.StatusInternalServerError, "Schedule generation failed", err.Error(), r.URL.Path)
        return
    }
    metrics.ScheduleRuns.WithLabelValues("ok").Inc()
    metrics.CustomersScheduled.WithLabelValues("scheduled").Add(float64(res.Summary.TotalJobs))
    metrics.CustomersScheduled.WithLabelValues("unscheduled").Add(float64(len(res.Unscheduled)))
    metrics.CustomersScheduled.WithLabelValues("excluded").Add(float64(len(res.Excluded)))
    if res.Savings.TimeSavedMinutes > 0 {
        metrics.TravelSaved.Add(res.Savings.TimeSavedMinutes)
    }
    s.Broker.Publish(res.AccountID, ScheduleEvent{Type: "schedule.generated", Data: map[string]any{
        "accountId": res.AccountID,
        "today":     res.Today,
        "jobs":      res.Summary.TotalJobs,
        "unscheduled": len(res.Unscheduled),
    }})
    if s.Sink != nil {
        s.Sink.Enqueue(res)
    } else if err := s.Store.SaveScheduleResult(r.Context(), res); err != nil {
        s.Log.Error().Err(err).Str("account", res.AccountID).Msg("schedule save failed")
        res.Warnings = append(res.Warnings, "schedule was generated but not persisted")
    }
    writeJSON(w, http.StatusOK, presentSchedule(res))
}

// scheduleInput resolves the request against stored account data.
func (s *Server) scheduleInput(r *http.Request, req *model.ScheduleRequest) (schedule.Input, error) {
    ctx := r.Context()
    in := schedule.Input{AccountID: req.AccountID, HorizonDays: req.HorizonDays}
    if req.HorizonDays == 0 { in.HorizonDays = s.Cfg.Schedule.HorizonDays }
    if req.ProtectedDays != nil {
        in.ProtectedDays = *req.ProtectedDays
    } else {
        in.ProtectedDays = s.Cfg.Schedule.ProtectedDays
    }
    if req.Today != "" {
        t, _ := time.Parse("2006-01-02", req.Today)
        in.Today = t
    } else {
        in.Today = time.Now().UTC()
    }
    in.Customers = req.Customers
    if len(in.Customers) == 0 {
        cs, err := s.Store.GetCustomers(ctx, req.AccountID)
        if err != nil { return in, fmt.Errorf("load customers: %w", err) }
        in.Customers = cs
    }
    if req.Calendar != nil {
        in.Calendar = *req.Calendar
    } else {
        cal, err := s.Store.GetWorkCalendar(ctx, req.AccountID)
        if err != nil { return in, fmt.Errorf("load work calendar: %w", err) }
        in.Calendar = cal
    }
    if in.Calendar.IsEmpty() {
        return in, fmt.Errorf("work calendar has no hours on any day")
    }
    if req.StartLocation != nil {
        in.Start = *req.StartLocation
    } else if pt, err := s.Store.GetStartLocation(ctx, req.AccountID); err == nil {
        in.Start = pt
    } else if len(in.Customers) > 0 {
        // fall back to the first customer's location rather than (0,0)
        in.Start = in.Customers[0].Location
    }
    return in, nil
}

// presentSchedule returns a response copy with negative savings clamped to
// zero. The raw signed numbers stay in the persisted result.
func presentSchedule(res *model.ScheduleResult) *model.ScheduleResult {
    out := *res
    out.Routes = make(map[string]model.DailyRoute, len(res.Routes))
    for k, r := range res.Routes {
        if r.Savings != nil {
            sv := *r.Savings
            if sv.TimeSavedMinutes < 0 {
                sv.TimeSavedMinutes, sv.CostSaved, sv.ImprovementPct = 0, 0, 0
            }
            r.Savings = &sv
        }
        out.Routes[k] = r
    }
    if out.Savings.TimeSavedMinutes < 0 {
        out.Savings.TimeSavedMinutes, out.Savings.CostSaved = 0, 0
    }
    if out.Savings.AvgImprovement < 0 { out.Savings.AvgImprovement = 0 }
    return &out
}

// SequenceHandler handles POST /v1/routes/sequence: one-shot stop ordering
// without calendar or capacity logic.
func (s *Server) SequenceHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.SequenceRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateSequenceRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid sequence request", err.Error(), r.URL.Path)
        return
    }
    algo := r.URL.Query().Get("algorithm")
    nodes := make([]opt.StopNode, len(req.Customers))
    for i, c := range req.Customers {
        nodes[i] = opt.StopNode{Lat: c.Location.Lat, Lng: c.Location.Lng}
    }
    start := nodes[0]
    if req.StartLocation != nil {
        start = opt.StopNode{Lat: req.StartLocation.Lat, Lng: req.StartLocation.Lng}
    }
    p := s.getPrincipal(r)
    var order []int
    if algo == "anneal" {
        an := opt.Anneal{TimeBudget: time.Duration(s.Cfg.Sequencer.BudgetMs) * time.Millisecond}
        var m opt.Metrics
        order, m = an.Run(start, nodes)
        opt.RecordRun(p.Account, time.Now().UTC().Format("2006-01-02"), an.Name(), m)
    } else {
        seq, err := opt.ForAlgorithm(algo, time.Duration(s.Cfg.Sequencer.BudgetMs)*time.Millisecond)
        if err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid algorithm", err.Error(), r.URL.Path)
            return
        }
        order, err = seq.Sequence(start, nodes)
        if err != nil {
            // degrade to input order rather than failing the request
            s.Log.Warn().Err(err).Msg("sequencing failed, keeping input order")
            order = make([]int, len(nodes))
            for i := range order { order[i] = i }
        }
    }
    stops := make([]model.SequencedStop, len(order))
    for pos, idx := range order {
        stops[pos] = model.SequencedStop{CustomerID: req.Customers[idx].ID, Order: pos + 1}
    }
    meters := 0.0
    cur := start
    for _, idx := range order {
        meters += geo.Meters(cur.Lat, cur.Lng, nodes[idx].Lat, nodes[idx].Lng)
        cur = nodes[idx]
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "stops":         stops,
        "travelMeters":  meters,
        "travelMinutes": geo.TravelMinutes(meters, s.Cfg.Schedule.SpeedKmh),
    })
}

// TodayHandler handles GET /v1/schedule/today.
func (s *Server) TodayHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p := s.getPrincipal(r)
    date := r.URL.Query().Get("date")
    if date == "" { date = time.Now().UTC().Format("2006-01-02") }
    route, err := s.Store.RouteForDate(r.Context(), p.Account, date)
    if errors.Is(err, store.ErrNotFound) {
        writeProblem(w, http.StatusNotFound, "No route for date", date, r.URL.Path)
        return
    }
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Load route failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, route)
}

// RoutesIndexHandler handles GET /v1/routes with an optional date range.
func (s *Server) RoutesIndexHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p := s.getPrincipal(r)
    routes, err := s.Store.ListRoutes(r.Context(), p.Account, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "List routes failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": routes})
}

// CustomersHandler handles POST/GET /v1/customers.
func (s *Server) CustomersHandler(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    switch r.Method {
    case http.MethodPost:
        var req struct {
            Customers []model.Customer `json:"customers"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        for i, c := range req.Customers {
            if err := validateCoords(c.Location); err != nil {
                writeProblem(w, http.StatusBadRequest, "Invalid customer", fmt.Sprintf("customer %d: %v", i, err), r.URL.Path)
                return
            }
        }
        created, err := s.Store.UpsertCustomers(r.Context(), p.Account, req.Customers)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Upsert customers failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusAccepted, map[string]any{"created": created})
    case http.MethodGet:
        items, err := s.Store.GetCustomers(r.Context(), p.Account)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List customers failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// CalendarHandler handles GET/PUT /v1/calendar.
func (s *Server) CalendarHandler(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    switch r.Method {
    case http.MethodGet:
        cal, err := s.Store.GetWorkCalendar(r.Context(), p.Account)
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "No work calendar", "", r.URL.Path)
            return
        }
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Load calendar failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, cal)
    case http.MethodPut:
        var cal model.WorkCalendar
        if err := json.NewDecoder(r.Body).Decode(&cal); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := s.Store.SaveWorkCalendar(r.Context(), p.Account, cal); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Save calendar failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, cal)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// JobCompleteHandler handles POST /v1/jobs/complete: record an actual job
// duration so future estimates use history instead of the declared figure.
func (s *Server) JobCompleteHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req struct {
        CustomerID      string  `json:"customerId"`
        DurationMinutes float64 `json:"durationMinutes"`
        CompletedAt     string  `json:"completedAt"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.CustomerID == "" || req.DurationMinutes <= 0 {
        writeProblem(w, http.StatusBadRequest, "Invalid job record", "customerId and positive durationMinutes required", r.URL.Path)
        return
    }
    if req.CompletedAt == "" { req.CompletedAt = time.Now().UTC().Format("2006-01-02") }
    if err := s.Store.RecordJobDone(r.Context(), req.CustomerID, req.DurationMinutes, req.CompletedAt); err != nil {
        writeProblem(w, http.StatusInternalServerError, "Record job failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// SequencerRunsHandler handles GET /v1/admin/sequencer/runs?date=YYYY-MM-DD.
func (s *Server) SequencerRunsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p := s.getPrincipal(r)
    if !p.IsAdmin() {
        writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
        return
    }
    date := r.URL.Query().Get("date")
    if date == "" { date = time.Now().UTC().Format("2006-01-02") }
    account := r.URL.Query().Get("accountId")
    if account == "" { account = p.Account }
    writeJSON(w, http.StatusOK, map[string]any{"date": date, "runs": opt.RunsFor(account, date)})
}

// ScheduleEventsHandler streams schedule events for the principal's account
// over SSE.
func (s *Server) ScheduleEventsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    p := s.getPrincipal(r)
    flusher, ok := w.(http.Flusher)
    if !ok {
        writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe(p.Account)
    defer s.Broker.Unsubscribe(p.Account, ch)
    fmt.Fprintf(w, "event: heartbeat\n")
    fmt.Fprintf(w, "data: {\"accountId\":\"%s\",\"ts\":\"%s\"}\n\n", p.Account, time.Now().Format(time.RFC3339))
    flusher.Flush()
    notify := r.Context().Done()
    for {
        select {
        case <-notify:
            return
        case evt := <-ch:
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-time.After(15 * time.Second):
            fmt.Fprintf(w, "event: heartbeat\n")
            fmt.Fprintf(w, "data: {\"accountId\":\"%s\",\"ts\":\"%s\"}\n\n", p.Account, time.Now().Format(time.RFC3339))
            flusher.Flush()
        }
    }
}

// HealthHandler reports process liveness.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// ReadyHandler reports readiness; the store must be reachable.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    if _, err := s.Store.ListRoutes(r.Context(), "readiness-probe", "", ""); err != nil {
        writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
