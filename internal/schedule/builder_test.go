package schedule

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"paneplan/internal/model"
	"paneplan/internal/opt"
)

func testBuilder() *Builder {
	return &Builder{
		Sequencer:     opt.Greedy{},
		Estimator:     Estimator{},
		Log:           zerolog.Nop(),
		SlackFactor:   DefaultSlackFactor,
		SpeedKmh:      30,
		CostPerMinute: 0.5,
	}
}

func fullWeekCalendar(hours float64) model.WorkCalendar {
	return model.WorkCalendar{
		MondayHours: hours, TuesdayHours: hours, WednesdayHours: hours,
		ThursdayHours: hours, FridayHours: hours, SaturdayHours: hours, SundayHours: hours,
		IsActive: true,
	}
}

func overdueCustomer(id string, lat, lng float64) model.Customer {
	return model.Customer{
		ID:            id,
		Name:          "Customer " + id,
		Location:      model.GeoPoint{Lat: lat, Lng: lng},
		LastService:   "2026-01-01",
		FrequencyDays: 14,
		Price:         40,
	}
}

func TestBuildProtectedDaysSkipped(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(context.Background(), Input{
		AccountID: "acct-1",
		Customers: []model.Customer{overdueCustomer("c1", 51.5, -0.1)},
		Calendar:  fullWeekCalendar(8),
		Start:     model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:     mustDate(t, "2026-03-02"),
	})
	require.NoError(t, err)
	require.Len(t, res.Routes, DefaultHorizonDays)
	for _, day := range []string{"2026-03-02", "2026-03-03"} {
		r := res.Routes[day]
		require.Empty(t, r.Stops)
		require.Contains(t, r.Message, "today/tomorrow restriction")
	}
	// The customer lands on the first unprotected working day.
	require.Len(t, res.Routes["2026-03-04"].Stops, 1)
	require.Empty(t, res.Unscheduled)
}

func TestBuildNoCapacityDayGetsMessage(t *testing.T) {
	b := testBuilder()
	cal := fullWeekCalendar(8)
	cal.SaturdayHours = 0
	cal.SundayHours = 0
	res, err := b.Build(context.Background(), Input{
		AccountID: "acct-1",
		Calendar:  cal,
		Start:     model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:     mustDate(t, "2026-03-02"), // a Monday
	})
	require.NoError(t, err)
	sat := res.Routes["2026-03-07"]
	require.Empty(t, sat.Stops)
	require.Equal(t, "No work hours scheduled for Saturday", sat.Message)
	require.Equal(t, "No work hours scheduled for Sunday", res.Routes["2026-03-08"].Message)
	require.Equal(t, 3, res.Summary.WorkingDays) // Wed, Thu, Fri
}

func TestBuildPoolShrinksAcrossDays(t *testing.T) {
	b := testBuilder()
	// Six 5-hour jobs, 8h days: one fits per day, a second would blow the
	// 480-minute budget.
	var customers []model.Customer
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5", "c6"} {
		c := overdueCustomer(id, 51.5, -0.1)
		c.EstimatedDuration = 300
		customers = append(customers, c)
	}
	res, err := b.Build(context.Background(), Input{
		AccountID: "acct-1",
		Customers: customers,
		Calendar:  fullWeekCalendar(8),
		Start:     model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:     mustDate(t, "2026-03-02"),
	})
	require.NoError(t, err)
	// 5 working days after protection, one job each: 5 scheduled, 1 left.
	require.Equal(t, 5, res.Summary.TotalJobs)
	require.Len(t, res.Unscheduled, 1)
	seen := map[string]int{}
	for _, r := range res.Routes {
		for _, s := range r.Stops {
			seen[s.CustomerID]++
		}
	}
	for id, n := range seen {
		require.Equal(t, 1, n, "customer %s scheduled more than once", id)
	}
}

func TestBuildUnscheduledIsNotAnError(t *testing.T) {
	b := testBuilder()
	c := overdueCustomer("c1", 51.5, -0.1)
	c.EstimatedDuration = 600 // never fits an 8-hour day
	res, err := b.Build(context.Background(), Input{
		AccountID: "acct-1",
		Customers: []model.Customer{c},
		Calendar:  fullWeekCalendar(8),
		Start:     model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:     mustDate(t, "2026-03-02"),
	})
	require.NoError(t, err)
	require.Len(t, res.Unscheduled, 1)
	require.Equal(t, "c1", res.Unscheduled[0].ID)
}

func TestBuildSingleStopDayHasZeroSavings(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(context.Background(), Input{
		AccountID: "acct-1",
		Customers: []model.Customer{overdueCustomer("c1", 51.52, -0.12)},
		Calendar:  fullWeekCalendar(8),
		Start:     model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:     mustDate(t, "2026-03-02"),
	})
	require.NoError(t, err)
	r := res.Routes["2026-03-04"]
	require.Len(t, r.Stops, 1)
	require.Equal(t, 1, r.Stops[0].Position)
	require.NotNil(t, r.Savings)
	require.InDelta(t, 0, r.Savings.TimeSavedMinutes, 1e-9, "one stop has nothing to reorder")
}

func TestBuildIdempotentForSameToday(t *testing.T) {
	in := Input{
		AccountID: "acct-1",
		Customers: []model.Customer{
			overdueCustomer("c1", 51.52, -0.12),
			overdueCustomer("c2", 51.55, -0.18),
			overdueCustomer("c3", 51.48, -0.05),
		},
		Calendar: fullWeekCalendar(8),
		Start:    model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:    mustDate(t, "2026-03-02"),
	}
	b := testBuilder()
	first, err := b.Build(context.Background(), in)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), in)
	require.NoError(t, err)
	first.GeneratedAt, second.GeneratedAt = "", ""
	a, _ := json.Marshal(first)
	bts, _ := json.Marshal(second)
	require.JSONEq(t, string(a), string(bts))
}

func TestBuildHonorsCancellation(t *testing.T) {
	b := testBuilder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx, Input{
		AccountID: "acct-1",
		Calendar:  fullWeekCalendar(8),
		Today:     mustDate(t, "2026-03-02"),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildReportsExclusions(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(context.Background(), Input{
		AccountID: "acct-1",
		Customers: []model.Customer{
			overdueCustomer("good", 51.5, -0.1),
			{ID: "bad", LastService: "nope", FrequencyDays: 14},
		},
		Calendar: fullWeekCalendar(8),
		Start:    model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:    mustDate(t, "2026-03-02"),
	})
	require.NoError(t, err)
	require.Len(t, res.Excluded, 1)
	require.Equal(t, "bad", res.Excluded[0].CustomerID)
	require.Equal(t, 1, res.Summary.TotalJobs)
}

func TestBuildRespectsHorizonAndProtectedOverrides(t *testing.T) {
	b := testBuilder()
	res, err := b.Build(context.Background(), Input{
		AccountID:     "acct-1",
		Customers:     []model.Customer{overdueCustomer("c1", 51.5, -0.1)},
		Calendar:      fullWeekCalendar(8),
		Start:         model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:         mustDate(t, "2026-03-02"),
		HorizonDays:   3,
		ProtectedDays: 0,
	})
	require.NoError(t, err)
	require.Len(t, res.Routes, 3)
	require.Len(t, res.Routes["2026-03-02"].Stops, 1, "with no protected days today is schedulable")
}

func TestBuildDegradesOnSequencerFailure(t *testing.T) {
	b := testBuilder()
	b.Sequencer = failingSequencer{}
	res, err := b.Build(context.Background(), Input{
		AccountID: "acct-1",
		Customers: []model.Customer{
			overdueCustomer("c1", 51.52, -0.12),
			overdueCustomer("c2", 51.55, -0.18),
		},
		Calendar: fullWeekCalendar(8),
		Start:    model.GeoPoint{Lat: 51.5, Lng: -0.1},
		Today:    mustDate(t, "2026-03-02"),
	})
	require.NoError(t, err)
	r := res.Routes["2026-03-04"]
	require.Len(t, r.Stops, 2)
	// Input order preserved: urgency ties broken by next-due, both equal here,
	// so the stable input order c1, c2 survives.
	require.Equal(t, "c1", r.Stops[0].CustomerID)
	require.Equal(t, "c2", r.Stops[1].CustomerID)
	require.NotEmpty(t, res.Warnings)
}

type failingSequencer struct{}

func (failingSequencer) Name() string { return "failing" }
func (failingSequencer) Sequence(opt.StopNode, []opt.StopNode) ([]int, error) {
	return nil, errFail
}

var errFail = errTest("sequencer exploded")

type errTest string

func (e errTest) Error() string { return string(e) }
