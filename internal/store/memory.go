package store

import (
    "context"
    "fmt"
    "os"
    "sync"

    "github.com/google/uuid"
    "gopkg.in/yaml.v3"

    "paneplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu        sync.Mutex
    customers map[string][]model.Customer    // account -> customers
    calendars map[string]model.WorkCalendar  // account -> calendar
    starts    map[string]model.GeoPoint      // account -> start location
    history   map[string][]float64           // customer -> durations, most recent first
    routes    map[string]model.DailyRoute    // account|date -> route
    byAccount map[string][]string            // account -> route keys in save order
}

func NewMemory() *Memory {
    return &Memory{
        customers: map[string][]model.Customer{},
        calendars: map[string]model.WorkCalendar{},
        starts:    map[string]model.GeoPoint{},
        history:   map[string][]float64{},
        routes:    map[string]model.DailyRoute{},
        byAccount: map[string][]string{},
    }
}

func routeKey(accountID, date string) string { return accountID + "|" + date }

func (m *Memory) GetCustomers(ctx context.Context, accountID string) ([]model.Customer, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := append([]model.Customer(nil), m.customers[accountID]...)
    return out, nil
}

func (m *Memory) UpsertCustomers(ctx context.Context, accountID string, customers []model.Customer) (int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    created := 0
    existing := m.customers[accountID]
    byID := map[string]int{}
    for i, c := range existing { byID[c.ID] = i }
    for _, c := range customers {
        if c.ID == "" { c.ID = uuid.New().String() }
        if i, ok := byID[c.ID]; ok {
            existing[i] = c
            continue
        }
        existing = append(existing, c)
        byID[c.ID] = len(existing) - 1
        created++
    }
    m.customers[accountID] = existing
    return created, nil
}

func (m *Memory) GetWorkCalendar(ctx context.Context, accountID string) (model.WorkCalendar, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    cal, ok := m.calendars[accountID]
    if !ok { return model.WorkCalendar{}, ErrNotFound }
    return cal, nil
}

func (m *Memory) SaveWorkCalendar(ctx context.Context, accountID string, cal model.WorkCalendar) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.calendars[accountID] = cal
    return nil
}

func (m *Memory) GetStartLocation(ctx context.Context, accountID string) (model.GeoPoint, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    p, ok := m.starts[accountID]
    if !ok { return model.GeoPoint{}, ErrNotFound }
    return p, nil
}

// SetStartLocation is used by seeding and tests; Postgres reads it from the
// account row instead.
func (m *Memory) SetStartLocation(accountID string, p model.GeoPoint) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.starts[accountID] = p
}

func (m *Memory) DurationHistory(ctx context.Context, customerID string, limit int) ([]float64, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    h := m.history[customerID]
    if limit > 0 && len(h) > limit { h = h[:limit] }
    return append([]float64(nil), h...), nil
}

func (m *Memory) RecordJobDone(ctx context.Context, customerID string, durationMinutes float64, completedAt string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.history[customerID] = append([]float64{durationMinutes}, m.history[customerID]...)
    return nil
}

func (m *Memory) SaveScheduleResult(ctx context.Context, res *model.ScheduleResult) error {
    m.mu.Lock(); defer m.mu.Unlock()
    for date, r := range res.Routes {
        k := routeKey(res.AccountID, date)
        if _, ok := m.routes[k]; !ok {
            m.byAccount[res.AccountID] = append(m.byAccount[res.AccountID], k)
        }
        m.routes[k] = r
    }
    return nil
}

func (m *Memory) RouteForDate(ctx context.Context, accountID, date string) (model.DailyRoute, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.routes[routeKey(accountID, date)]
    if !ok { return model.DailyRoute{}, ErrNotFound }
    return r, nil
}

func (m *Memory) ListRoutes(ctx context.Context, accountID, from, to string) ([]model.DailyRoute, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []model.DailyRoute{}
    for _, k := range m.byAccount[accountID] {
        r := m.routes[k]
        if from != "" && r.Date < from { continue }
        if to != "" && r.Date > to { continue }
        out = append(out, r)
    }
    return out, nil
}

// seedFile is the on-disk development fixture format.
type seedFile struct {
    Accounts []struct {
        ID        string         `yaml:"id"`
        Start     model.GeoPoint `yaml:"start"`
        Calendar  seedCalendar   `yaml:"calendar"`
        Customers []seedCustomer `yaml:"customers"`
    } `yaml:"accounts"`
}

// seedCalendar keys hours by weekday name for readable fixtures.
type seedCalendar struct {
    Monday    float64 `yaml:"monday"`
    Tuesday   float64 `yaml:"tuesday"`
    Wednesday float64 `yaml:"wednesday"`
    Thursday  float64 `yaml:"thursday"`
    Friday    float64 `yaml:"friday"`
    Saturday  float64 `yaml:"saturday"`
    Sunday    float64 `yaml:"sunday"`
}

func (sc seedCalendar) toCalendar() model.WorkCalendar {
    return model.WorkCalendar{
        MondayHours: sc.Monday, TuesdayHours: sc.Tuesday, WednesdayHours: sc.Wednesday,
        ThursdayHours: sc.Thursday, FridayHours: sc.Friday, SaturdayHours: sc.Saturday,
        SundayHours: sc.Sunday, IsActive: true,
    }
}

type seedCustomer struct {
    ID            string         `yaml:"id"`
    Name          string         `yaml:"name"`
    Address       string         `yaml:"address"`
    Location      model.GeoPoint `yaml:"location"`
    LastService   string         `yaml:"lastService"`
    Frequency     string         `yaml:"frequency"`
    FrequencyDays int            `yaml:"frequencyDays"`
    Duration      int            `yaml:"durationMinutes"`
    Price         float64        `yaml:"price"`
    PaymentMethod string         `yaml:"paymentMethod"`
    History       []float64      `yaml:"history"`
}

func (sc seedCustomer) toCustomer() model.Customer {
    return model.Customer{
        ID: sc.ID, Name: sc.Name, Address: sc.Address, Location: sc.Location,
        LastService: sc.LastService, FrequencyDays: sc.FrequencyDays,
        EstimatedDuration: sc.Duration, Price: sc.Price, PaymentMethod: sc.PaymentMethod,
    }
}

// LoadSeed loads development fixtures from a YAML file. Frequency labels
// ("weekly", "monthly") are accepted alongside explicit day counts.
func (m *Memory) LoadSeed(path string, parseFrequency func(string) int) error {
    raw, err := os.ReadFile(path)
    if err != nil { return fmt.Errorf("read seed: %w", err) }
    var f seedFile
    if err := yaml.Unmarshal(raw, &f); err != nil { return fmt.Errorf("parse seed: %w", err) }
    for _, a := range f.Accounts {
        cs := make([]model.Customer, 0, len(a.Customers))
        for _, sc := range a.Customers {
            c := sc.toCustomer()
            if c.FrequencyDays <= 0 && sc.Frequency != "" && parseFrequency != nil {
                c.FrequencyDays = parseFrequency(sc.Frequency)
            }
            cs = append(cs, c)
        }
        if _, err := m.UpsertCustomers(context.Background(), a.ID, cs); err != nil { return err }
        if err := m.SaveWorkCalendar(context.Background(), a.ID, a.Calendar.toCalendar()); err != nil { return err }
        m.SetStartLocation(a.ID, a.Start)
        for _, sc := range a.Customers {
            m.mu.Lock()
            if len(sc.History) > 0 { m.history[sc.ID] = append([]float64(nil), sc.History...) }
            m.mu.Unlock()
        }
    }
    return nil
}
