package model

// Core domain types for schedule generation and route sequencing.

type GeoPoint struct {
    Lat float64 `json:"lat"`
    Lng float64 `json:"lng"`
}

// Customer is a recurring service visit as supplied by the account's datastore.
// Dates travel as YYYY-MM-DD strings; parsing happens at the scheduling boundary.
type Customer struct {
    ID                string   `json:"id"`
    Name              string   `json:"name,omitempty"`
    Address           string   `json:"address,omitempty"`
    Phone             string   `json:"phone,omitempty"`
    Email             string   `json:"email,omitempty"`
    Location          GeoPoint `json:"location"`
    LastService       string   `json:"lastService"`
    FrequencyDays     int      `json:"frequencyDays"`
    EstimatedDuration int      `json:"estimatedDurationMin,omitempty"`
    Price             float64  `json:"price,omitempty"`
    PaymentMethod     string   `json:"paymentMethod,omitempty"`
}

// WorkCalendar maps weekdays to available working hours. Zero hours means a
// day off. Immutable input for one scheduling run.
type WorkCalendar struct {
    MondayHours    float64 `json:"mondayHours"`
    TuesdayHours   float64 `json:"tuesdayHours"`
    WednesdayHours float64 `json:"wednesdayHours"`
    ThursdayHours  float64 `json:"thursdayHours"`
    FridayHours    float64 `json:"fridayHours"`
    SaturdayHours  float64 `json:"saturdayHours"`
    SundayHours    float64 `json:"sundayHours"`
    IsActive       bool    `json:"isActive,omitempty"`
}

// HoursFor returns the available hours for a weekday name ("Monday".."Sunday").
func (c WorkCalendar) HoursFor(day string) float64 {
    switch day {
    case "Monday":
        return c.MondayHours
    case "Tuesday":
        return c.TuesdayHours
    case "Wednesday":
        return c.WednesdayHours
    case "Thursday":
        return c.ThursdayHours
    case "Friday":
        return c.FridayHours
    case "Saturday":
        return c.SaturdayHours
    case "Sunday":
        return c.SundayHours
    }
    return 0
}

// IsEmpty reports whether no day carries any hours at all.
func (c WorkCalendar) IsEmpty() bool {
    return c.MondayHours <= 0 && c.TuesdayHours <= 0 && c.WednesdayHours <= 0 &&
        c.ThursdayHours <= 0 && c.FridayHours <= 0 && c.SaturdayHours <= 0 && c.SundayHours <= 0
}

// RouteStop is a customer annotated with its position within one day's route.
type RouteStop struct {
    CustomerID      string   `json:"customerId"`
    Name            string   `json:"name,omitempty"`
    Address         string   `json:"address,omitempty"`
    Position        int      `json:"position"`
    DurationMinutes int      `json:"durationMinutes"`
    DurationSource  string   `json:"durationSource,omitempty"`
    Price           float64  `json:"price,omitempty"`
    PaymentMethod   string   `json:"paymentMethod,omitempty"`
    Location        GeoPoint `json:"location"`
}

// Savings compares the optimized stop order against the original input order
// for one day. TimeSavedMinutes keeps its sign; presentation clamps at zero.
type Savings struct {
    OptimizedMinutes   float64 `json:"optimizedMinutes"`
    UnoptimizedMinutes float64 `json:"unoptimizedMinutes"`
    TimeSavedMinutes   float64 `json:"timeSavedMinutes"`
    CostSaved          float64 `json:"costSaved"`
    ImprovementPct     float64 `json:"improvementPct"`
}

// DailyRoute is one scheduled working day. Immutable once emitted.
type DailyRoute struct {
    Date            string      `json:"date"`
    Day             string      `json:"day"`
    Stops           []RouteStop `json:"stops"`
    TotalJobs       int         `json:"totalJobs"`
    DurationMinutes int         `json:"durationMinutes"`
    TravelMinutes   float64     `json:"travelMinutes"`
    Revenue         float64     `json:"revenue"`
    WorkHours       float64     `json:"workHours"`
    Savings         *Savings    `json:"savings,omitempty"`
    Message         string      `json:"message,omitempty"`
}

type ScheduleSummary struct {
    HorizonDays       int     `json:"horizonDays"`
    WorkingDays       int     `json:"workingDays"`
    TotalJobs         int     `json:"totalJobs"`
    TotalDurationMin  int     `json:"totalDurationMinutes"`
    TotalTravelMin    float64 `json:"totalTravelMinutes"`
    TotalRevenue      float64 `json:"totalRevenue"`
    AvgJobsPerWorkDay float64 `json:"avgJobsPerWorkingDay"`
}

// SavingsSummary aggregates the per-day savings across the horizon.
type SavingsSummary struct {
    TimeSavedMinutes float64 `json:"timeSavedMinutes"`
    CostSaved        float64 `json:"costSaved"`
    AvgImprovement   float64 `json:"avgImprovementPct"`
    ExtraJobCapacity int     `json:"extraJobCapacity"`
}

// Exclusion reports a customer dropped from the pool for invalid input.
type Exclusion struct {
    CustomerID string `json:"customerId"`
    Reason     string `json:"reason"`
}

// ScheduleResult is the full output of one scheduling run.
type ScheduleResult struct {
    AccountID   string                `json:"accountId"`
    GeneratedAt string                `json:"generatedAt"`
    Today       string                `json:"today"`
    Routes      map[string]DailyRoute `json:"routes"`
    Summary     ScheduleSummary       `json:"summary"`
    Savings     SavingsSummary        `json:"savings"`
    Unscheduled []Customer            `json:"unscheduled"`
    Excluded    []Exclusion           `json:"excluded,omitempty"`
    Warnings    []string              `json:"warnings,omitempty"`
}

// ScheduleRequest is the invocation payload. Inline customers/calendar/start
// override the account's stored data when present.
type ScheduleRequest struct {
    AccountID     string        `json:"accountId"`
    Customers     []Customer    `json:"customers,omitempty"`
    Calendar      *WorkCalendar `json:"workSchedule,omitempty"`
    StartLocation *GeoPoint     `json:"startLocation,omitempty"`
    Today         string        `json:"today,omitempty"`
    HorizonDays   int           `json:"horizonDays,omitempty"`
    ProtectedDays *int          `json:"protectedDays,omitempty"`
    Algorithm     string        `json:"algorithm,omitempty"`
}

// SequenceRequest is the one-shot route ordering payload (no calendar logic).
type SequenceRequest struct {
    Customers     []Customer `json:"customers"`
    StartLocation *GeoPoint  `json:"startLocation,omitempty"`
}

// SequencedStop is an element of a one-shot ordering response.
type SequencedStop struct {
    CustomerID string `json:"customerId"`
    Order      int    `json:"order"`
}
