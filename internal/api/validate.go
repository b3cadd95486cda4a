package api

import (
    "fmt"
    "math"
    "time"

    "paneplan/internal/model"
)

func validateScheduleRequest(req *model.ScheduleRequest) error {
    if req.Algorithm != "" && req.Algorithm != "greedy" && req.Algorithm != "greedy-2opt" && req.Algorithm != "anneal" {
        return fmt.Errorf("invalid algorithm: %s", req.Algorithm)
    }
    if req.Today != "" {
        if _, err := time.Parse("2006-01-02", req.Today); err != nil {
            return fmt.Errorf("invalid today: %s", req.Today)
        }
    }
    if req.HorizonDays < 0 || req.HorizonDays > 30 {
        return fmt.Errorf("horizonDays must be in [0, 30]")
    }
    if req.ProtectedDays != nil {
        horizon := req.HorizonDays
        if horizon == 0 { horizon = 7 }
        if *req.ProtectedDays < 0 || *req.ProtectedDays > horizon {
            return fmt.Errorf("protectedDays must be within the horizon")
        }
    }
    for i, c := range req.Customers {
        if err := validateCoords(c.Location); err != nil {
            return fmt.Errorf("customer %d: %w", i, err)
        }
    }
    return nil
}

func validateSequenceRequest(req *model.SequenceRequest) error {
    if len(req.Customers) == 0 {
        return fmt.Errorf("customers required")
    }
    for i, c := range req.Customers {
        if err := validateCoords(c.Location); err != nil {
            return fmt.Errorf("customer %d: %w", i, err)
        }
    }
    if req.StartLocation != nil {
        return validateCoords(*req.StartLocation)
    }
    return nil
}

func validateCoords(p model.GeoPoint) error {
    // NaN fails no range comparison, so it needs its own check
    if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
        return fmt.Errorf("lat out of range: %v", p.Lat)
    }
    if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
        return fmt.Errorf("lng out of range: %v", p.Lng)
    }
    return nil
}
