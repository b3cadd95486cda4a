package store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "paneplan/internal/model"
    "paneplan/internal/schedule"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

// MigrateDir applies *.sql files from dir in lexical order. Files are
// expected to be idempotent (IF NOT EXISTS style).
func (p *Postgres) MigrateDir(ctx context.Context, dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil { return fmt.Errorf("read migrations: %w", err) }
    names := []string{}
    for _, e := range entries {
        if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") { names = append(names, e.Name()) }
    }
    sort.Strings(names)
    for _, n := range names {
        raw, err := os.ReadFile(filepath.Join(dir, n))
        if err != nil { return err }
        if _, err := p.db.ExecContext(ctx, string(raw)); err != nil {
            return fmt.Errorf("migration %s: %w", n, err)
        }
    }
    return nil
}

func (p *Postgres) GetCustomers(ctx context.Context, accountID string) ([]model.Customer, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, name, address, phone, email, lat, lng, to_char(last_service, 'YYYY-MM-DD'), frequency, estimated_duration, price, payment_method FROM customers WHERE account_id=$1 ORDER BY created_at, id`, accountID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Customer{}
    for rows.Next() {
        var c model.Customer
        var name, address, phone, email, last, freq, pay sql.NullString
        var lat, lng, price sql.NullFloat64
        var dur sql.NullInt64
        if err := rows.Scan(&c.ID, &name, &address, &phone, &email, &lat, &lng, &last, &freq, &dur, &price, &pay); err != nil { return nil, err }
        c.Name = name.String
        c.Address = address.String
        c.Phone = phone.String
        c.Email = email.String
        c.Location = model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
        c.LastService = last.String
        c.FrequencyDays = schedule.ParseFrequency(freq.String)
        if dur.Valid { c.EstimatedDuration = int(dur.Int64) }
        c.Price = price.Float64
        c.PaymentMethod = pay.String
        out = append(out, c)
    }
    return out, rows.Err()
}

func (p *Postgres) UpsertCustomers(ctx context.Context, accountID string, customers []model.Customer) (int, error) {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return 0, err }
    defer func() { _ = tx.Rollback() }()
    created := 0
    for _, c := range customers {
        if c.ID == "" { c.ID = uuid.New().String() }
        res, err := tx.ExecContext(ctx, `INSERT INTO customers (id, account_id, name, address, phone, email, lat, lng, last_service, frequency, estimated_duration, price, payment_method)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::date,$10,$11,$12,$13)
            ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, address=EXCLUDED.address, phone=EXCLUDED.phone, email=EXCLUDED.email,
                lat=EXCLUDED.lat, lng=EXCLUDED.lng, last_service=EXCLUDED.last_service, frequency=EXCLUDED.frequency,
                estimated_duration=EXCLUDED.estimated_duration, price=EXCLUDED.price, payment_method=EXCLUDED.payment_method`,
            c.ID, accountID, nullIfEmpty(c.Name), nullIfEmpty(c.Address), nullIfEmpty(c.Phone), nullIfEmpty(c.Email),
            c.Location.Lat, c.Location.Lng, nullIfEmpty(c.LastService), frequencyLabel(c.FrequencyDays), c.EstimatedDuration, c.Price, nullIfEmpty(c.PaymentMethod))
        if err != nil { return created, err }
        if n, _ := res.RowsAffected(); n > 0 { created++ }
    }
    if err := tx.Commit(); err != nil { return created, err }
    return created, nil
}

func (p *Postgres) GetWorkCalendar(ctx context.Context, accountID string) (model.WorkCalendar, error) {
    var cal model.WorkCalendar
    row := p.db.QueryRowContext(ctx, `SELECT monday_hours, tuesday_hours, wednesday_hours, thursday_hours, friday_hours, saturday_hours, sunday_hours, is_active FROM work_schedules WHERE account_id=$1`, accountID)
    err := row.Scan(&cal.MondayHours, &cal.TuesdayHours, &cal.WednesdayHours, &cal.ThursdayHours, &cal.FridayHours, &cal.SaturdayHours, &cal.SundayHours, &cal.IsActive)
    if errors.Is(err, sql.ErrNoRows) { return cal, ErrNotFound }
    return cal, err
}

func (p *Postgres) SaveWorkCalendar(ctx context.Context, accountID string, cal model.WorkCalendar) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO work_schedules (account_id, monday_hours, tuesday_hours, wednesday_hours, thursday_hours, friday_hours, saturday_hours, sunday_hours, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (account_id) DO UPDATE SET monday_hours=EXCLUDED.monday_hours, tuesday_hours=EXCLUDED.tuesday_hours,
            wednesday_hours=EXCLUDED.wednesday_hours, thursday_hours=EXCLUDED.thursday_hours, friday_hours=EXCLUDED.friday_hours,
            saturday_hours=EXCLUDED.saturday_hours, sunday_hours=EXCLUDED.sunday_hours, is_active=EXCLUDED.is_active`,
        accountID, cal.MondayHours, cal.TuesdayHours, cal.WednesdayHours, cal.ThursdayHours, cal.FridayHours, cal.SaturdayHours, cal.SundayHours, cal.IsActive)
    return err
}

func (p *Postgres) GetStartLocation(ctx context.Context, accountID string) (model.GeoPoint, error) {
    var pt model.GeoPoint
    row := p.db.QueryRowContext(ctx, `SELECT start_lat, start_lng FROM accounts WHERE id=$1`, accountID)
    err := row.Scan(&pt.Lat, &pt.Lng)
    if errors.Is(err, sql.ErrNoRows) { return pt, ErrNotFound }
    return pt, err
}

func (p *Postgres) DurationHistory(ctx context.Context, customerID string, limit int) ([]float64, error) {
    if limit <= 0 || limit > 100 { limit = 10 }
    rows, err := p.db.QueryContext(ctx, `SELECT duration_minutes FROM job_history WHERE customer_id=$1 ORDER BY completed_at DESC LIMIT $2`, customerID, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []float64{}
    for rows.Next() {
        var d float64
        if err := rows.Scan(&d); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) RecordJobDone(ctx context.Context, customerID string, durationMinutes float64, completedAt string) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO job_history (id, customer_id, duration_minutes, completed_at) VALUES ($1,$2,$3,$4::date)`,
        uuid.New().String(), customerID, durationMinutes, completedAt)
    return err
}

// SaveScheduleResult replaces the account's routes for every date in the
// result. Jobs are written with their visit order so the day's route reads
// back in sequence.
func (p *Postgres) SaveScheduleResult(ctx context.Context, res *model.ScheduleResult) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func() { _ = tx.Rollback() }()
    for date, r := range res.Routes {
        var routeID string
        err := tx.QueryRowContext(ctx, `SELECT id::text FROM routes WHERE account_id=$1 AND route_date=$2::date`, res.AccountID, date).Scan(&routeID)
        if errors.Is(err, sql.ErrNoRows) {
            routeID = uuid.New().String()
            _, err = tx.ExecContext(ctx, `INSERT INTO routes (id, account_id, route_date, day_name, total_jobs, duration_minutes, travel_minutes, revenue, work_hours, message)
                VALUES ($1,$2,$3::date,$4,$5,$6,$7,$8,$9,$10)`,
                routeID, res.AccountID, date, r.Day, r.TotalJobs, r.DurationMinutes, r.TravelMinutes, r.Revenue, r.WorkHours, nullIfEmpty(r.Message))
        } else if err == nil {
            _, err = tx.ExecContext(ctx, `UPDATE routes SET day_name=$2, total_jobs=$3, duration_minutes=$4, travel_minutes=$5, revenue=$6, work_hours=$7, message=$8, generated_at=now() WHERE id=$1`,
                routeID, r.Day, r.TotalJobs, r.DurationMinutes, r.TravelMinutes, r.Revenue, r.WorkHours, nullIfEmpty(r.Message))
        }
        if err != nil { return err }
        if _, err := tx.ExecContext(ctx, `DELETE FROM route_jobs WHERE route_id=$1`, routeID); err != nil { return err }
        for _, s := range r.Stops {
            _, err := tx.ExecContext(ctx, `INSERT INTO route_jobs (id, route_id, customer_id, visit_order, duration_minutes, duration_source, price, status)
                VALUES ($1,$2,$3,$4,$5,$6,$7,'scheduled')`,
                uuid.New().String(), routeID, s.CustomerID, s.Position, s.DurationMinutes, nullIfEmpty(s.DurationSource), s.Price)
            if err != nil { return err }
        }
    }
    return tx.Commit()
}

func (p *Postgres) RouteForDate(ctx context.Context, accountID, date string) (model.DailyRoute, error) {
    var r model.DailyRoute
    var routeID string
    var msg sql.NullString
    row := p.db.QueryRowContext(ctx, `SELECT id::text, to_char(route_date, 'YYYY-MM-DD'), day_name, total_jobs, duration_minutes, travel_minutes, revenue, work_hours, message FROM routes WHERE account_id=$1 AND route_date=$2::date`, accountID, date)
    if err := row.Scan(&routeID, &r.Date, &r.Day, &r.TotalJobs, &r.DurationMinutes, &r.TravelMinutes, &r.Revenue, &r.WorkHours, &msg); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return r, ErrNotFound }
        return r, err
    }
    r.Message = msg.String
    stops, err := p.routeJobs(ctx, routeID)
    if err != nil { return r, err }
    r.Stops = stops
    return r, nil
}

func (p *Postgres) ListRoutes(ctx context.Context, accountID, from, to string) ([]model.DailyRoute, error) {
    q := `SELECT id::text, to_char(route_date, 'YYYY-MM-DD'), day_name, total_jobs, duration_minutes, travel_minutes, revenue, work_hours, message FROM routes WHERE account_id=$1`
    args := []any{accountID}
    if from != "" {
        args = append(args, from)
        q += fmt.Sprintf(" AND route_date >= $%d::date", len(args))
    }
    if to != "" {
        args = append(args, to)
        q += fmt.Sprintf(" AND route_date <= $%d::date", len(args))
    }
    q += " ORDER BY route_date"
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.DailyRoute{}
    ids := []string{}
    for rows.Next() {
        var r model.DailyRoute
        var routeID string
        var msg sql.NullString
        if err := rows.Scan(&routeID, &r.Date, &r.Day, &r.TotalJobs, &r.DurationMinutes, &r.TravelMinutes, &r.Revenue, &r.WorkHours, &msg); err != nil { return nil, err }
        r.Message = msg.String
        out = append(out, r)
        ids = append(ids, routeID)
    }
    if err := rows.Err(); err != nil { return nil, err }
    for i, id := range ids {
        stops, err := p.routeJobs(ctx, id)
        if err != nil { return nil, err }
        out[i].Stops = stops
    }
    return out, nil
}

func (p *Postgres) routeJobs(ctx context.Context, routeID string) ([]model.RouteStop, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT rj.customer_id::text, rj.visit_order, rj.duration_minutes, rj.duration_source, rj.price, c.name, c.address, c.lat, c.lng, c.payment_method
        FROM route_jobs rj LEFT JOIN customers c ON c.id = rj.customer_id WHERE rj.route_id=$1 ORDER BY rj.visit_order`, routeID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.RouteStop{}
    for rows.Next() {
        var s model.RouteStop
        var src, name, addr, pay sql.NullString
        var lat, lng sql.NullFloat64
        if err := rows.Scan(&s.CustomerID, &s.Position, &s.DurationMinutes, &src, &s.Price, &name, &addr, &lat, &lng, &pay); err != nil { return nil, err }
        s.DurationSource = src.String
        s.Name = name.String
        s.Address = addr.String
        s.Location = model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
        s.PaymentMethod = pay.String
        out = append(out, s)
    }
    return out, rows.Err()
}

func nullIfEmpty(s string) any {
    if s == "" { return nil }
    return s
}

// frequencyLabel stores the cadence as the label form the rest of the data
// uses, falling back to the raw day count for non-standard cadences.
func frequencyLabel(days int) string {
    switch days {
    case 7:
        return "weekly"
    case 14, 0:
        return "bi-weekly"
    case 30:
        return "monthly"
    }
    return fmt.Sprintf("%d", days)
}
