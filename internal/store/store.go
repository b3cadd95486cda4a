package store

import (
    "context"
    "errors"

    "paneplan/internal/model"
)

// Store is the persistence interface used by the API server. DurationHistory
// doubles as the duration estimator's sample source.
type Store interface {
    // Customers and account setup
    GetCustomers(ctx context.Context, accountID string) ([]model.Customer, error)
    UpsertCustomers(ctx context.Context, accountID string, customers []model.Customer) (created int, err error)
    GetWorkCalendar(ctx context.Context, accountID string) (model.WorkCalendar, error)
    SaveWorkCalendar(ctx context.Context, accountID string, cal model.WorkCalendar) error
    GetStartLocation(ctx context.Context, accountID string) (model.GeoPoint, error)

    // Job history
    DurationHistory(ctx context.Context, customerID string, limit int) ([]float64, error)
    RecordJobDone(ctx context.Context, customerID string, durationMinutes float64, completedAt string) error

    // Schedules and routes
    SaveScheduleResult(ctx context.Context, res *model.ScheduleResult) error
    RouteForDate(ctx context.Context, accountID, date string) (model.DailyRoute, error)
    ListRoutes(ctx context.Context, accountID, from, to string) ([]model.DailyRoute, error)
}

var ErrNotFound = errors.New("not found")
