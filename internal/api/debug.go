package api

import (
    "encoding/json"
    "net/http"
    "time"

    "paneplan/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "port":             s.Cfg.Port,
            "horizon_days":     s.Cfg.Schedule.HorizonDays,
            "protected_days":   s.Cfg.Schedule.ProtectedDays,
            "slack_factor":     s.Cfg.Schedule.SlackFactor,
            "algorithm":        s.Cfg.Sequencer.Algorithm,
            "sink_enabled":     s.Cfg.Sink.Enabled,
            "has_database_url": s.Cfg.DatabaseURL != "",
            "has_redis_url":    s.Cfg.RedisURL != "",
        },
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
