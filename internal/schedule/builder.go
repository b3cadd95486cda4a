package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"paneplan/internal/model"
	"paneplan/internal/opt"
)

// DefaultHorizonDays is the planning window when the request doesn't set one.
const DefaultHorizonDays = 7

// DefaultProtectedDays keeps today and tomorrow untouched: jobs already
// promised to customers for those days must not be reshuffled under them.
const DefaultProtectedDays = 2

const protectedMessage = "Skipped - Cannot optimize (today/tomorrow restriction)"

// Builder generates a multi-day schedule from a customer pool, a work
// calendar and a start location. One Builder is safe for concurrent use;
// all run state lives in Build's locals.
type Builder struct {
	Sequencer     opt.Sequencer
	Estimator     Estimator
	Log           zerolog.Logger
	SlackFactor   float64
	SpeedKmh      float64
	CostPerMinute float64
}

// Input is one scheduling run. Today is a calendar date; time-of-day is
// ignored.
type Input struct {
	AccountID     string
	Customers     []model.Customer
	Calendar      model.WorkCalendar
	Start         model.GeoPoint
	Today         time.Time
	HorizonDays   int
	ProtectedDays int
}

// Build walks the horizon day by day, assigning each working day's jobs from
// a shared urgency-ordered pool. The pool shrinks as days fill, so a customer
// is scheduled at most once across the horizon. Customers left over at the
// end are reported as unscheduled, which is an expected outcome of a full
// book, not an error.
//
// Given identical inputs and the same today, Build returns the same
// assignment. Cancellation is honored between days; a day in progress is
// finished.
func (b *Builder) Build(ctx context.Context, in Input) (*model.ScheduleResult, error) {
	horizon := in.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	protected := in.ProtectedDays
	if protected < 0 {
		protected = DefaultProtectedDays
	}
	today := time.Date(in.Today.Year(), in.Today.Month(), in.Today.Day(), 0, 0, 0, 0, time.UTC)

	res := &model.ScheduleResult{
		AccountID:   in.AccountID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Today:       today.Format(dateLayout),
		Routes:      make(map[string]model.DailyRoute, horizon),
	}
	res.Summary.HorizonDays = horizon

	pool, excluded := scoreCustomers(in.Customers, today)
	res.Excluded = excluded
	for i := range pool {
		pool[i].Duration, pool[i].Source = b.Estimator.Estimate(ctx, pool[i].Customer.ID, pool[i].Customer.EstimatedDuration)
	}

	start := opt.StopNode{Lat: in.Start.Lat, Lng: in.Start.Lng}
	var improvementSum float64
	var improvementDays int

	for day := 0; day < horizon; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date := today.AddDate(0, 0, day)
		dateStr := date.Format(dateLayout)
		dayName := date.Weekday().String()
		hours := in.Calendar.HoursFor(dayName)
		route := model.DailyRoute{Date: dateStr, Day: dayName, Stops: []model.RouteStop{}, WorkHours: hours}

		switch {
		case day < protected:
			route.Message = protectedMessage
		case hours <= 0:
			route.Message = fmt.Sprintf("No work hours scheduled for %s", dayName)
		default:
			res.Summary.WorkingDays++
			var packed []urgencyEntry
			packed, pool = packDay(pool, hours, b.SlackFactor)
			if len(packed) == 0 {
				break
			}
			nodes := make([]opt.StopNode, len(packed))
			for i, e := range packed {
				nodes[i] = opt.StopNode{Lat: e.Customer.Location.Lat, Lng: e.Customer.Location.Lng}
			}
			order, err := b.Sequencer.Sequence(start, nodes)
			if err != nil || len(order) != len(nodes) {
				b.Log.Warn().Err(err).Str("account", in.AccountID).Str("date", dateStr).Msg("sequencing failed, keeping input order")
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: route not optimized, using input order", dateStr))
				order = make([]int, len(nodes))
				for i := range order {
					order[i] = i
				}
			}
			for pos, idx := range order {
				e := packed[idx]
				route.Stops = append(route.Stops, model.RouteStop{
					CustomerID:      e.Customer.ID,
					Name:            e.Customer.Name,
					Address:         e.Customer.Address,
					Position:        pos + 1,
					DurationMinutes: e.Duration,
					DurationSource:  e.Source,
					Price:           e.Customer.Price,
					PaymentMethod:   e.Customer.PaymentMethod,
					Location:        e.Customer.Location,
				})
				route.DurationMinutes += e.Duration
				route.Revenue += e.Customer.Price
			}
			route.TotalJobs = len(route.Stops)
			route.TravelMinutes = routeMinutes(start, nodes, order, b.SpeedKmh)
			sv := compareSavings(start, nodes, order, b.SpeedKmh, b.CostPerMinute)
			route.Savings = &sv
			if sv.UnoptimizedMinutes > 0 {
				improvementSum += sv.ImprovementPct
				improvementDays++
			}
			res.Summary.TotalJobs += route.TotalJobs
			res.Summary.TotalDurationMin += route.DurationMinutes
			res.Summary.TotalTravelMin += route.TravelMinutes
			res.Summary.TotalRevenue += route.Revenue
			res.Savings.TimeSavedMinutes += sv.TimeSavedMinutes
			res.Savings.CostSaved += sv.CostSaved
		}
		res.Routes[dateStr] = route
	}

	if res.Summary.WorkingDays > 0 {
		res.Summary.AvgJobsPerWorkDay = float64(res.Summary.TotalJobs) / float64(res.Summary.WorkingDays)
	}
	if improvementDays > 0 {
		res.Savings.AvgImprovement = improvementSum / float64(improvementDays)
	}
	avgJob := float64(DefaultJobMinutes)
	if res.Summary.TotalJobs > 0 {
		avgJob = float64(res.Summary.TotalDurationMin) / float64(res.Summary.TotalJobs)
	}
	if res.Savings.TimeSavedMinutes > 0 && avgJob > 0 {
		res.Savings.ExtraJobCapacity = int(res.Savings.TimeSavedMinutes / avgJob)
	}

	res.Unscheduled = make([]model.Customer, 0, len(pool))
	for _, e := range pool {
		res.Unscheduled = append(res.Unscheduled, e.Customer)
	}
	b.Log.Info().
		Str("account", in.AccountID).
		Int("horizonDays", horizon).
		Int("scheduled", res.Summary.TotalJobs).
		Int("unscheduled", len(res.Unscheduled)).
		Int("excluded", len(res.Excluded)).
		Msg("schedule generated")
	return res, nil
}
