package api

import (
    "context"
    "time"

    "github.com/rs/zerolog"

    "paneplan/internal/config"
    "paneplan/internal/opt"
    "paneplan/internal/schedule"
    "paneplan/internal/sink"
    "paneplan/internal/store"
)

type Server struct {
    Store  store.Store
    Broker EventBroker
    Sink   *sink.Worker
    Log    zerolog.Logger
    Cfg    config.Config
}

// NewServer wires the service from configuration. With no database_url the
// in-memory store is used, optionally seeded from a fixture file; with no
// redis_url events fan out in-process only.
func NewServer(cfg config.Config, log zerolog.Logger) (*Server, error) {
    var s store.Store
    if cfg.DatabaseURL == "" {
        mem := store.NewMemory()
        if cfg.SeedFile != "" {
            if err := mem.LoadSeed(cfg.SeedFile, schedule.ParseFrequency); err != nil {
                return nil, err
            }
            log.Info().Str("file", cfg.SeedFile).Msg("loaded seed fixtures")
        }
        s = mem
    } else {
        pg, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if cfg.Migrations != "" {
            ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
            defer cancel()
            if err := pg.MigrateDir(ctx, cfg.Migrations); err != nil {
                return nil, err
            }
        }
        s = pg
    }
    var broker EventBroker
    if cfg.RedisURL != "" {
        rb, err := NewRedisBroker(cfg.RedisURL)
        if err != nil {
            log.Warn().Err(err).Msg("redis broker unavailable, using in-process broker")
            broker = NewBroker()
        } else {
            broker = rb
        }
    } else {
        broker = NewBroker()
    }
    srv := &Server{Store: s, Broker: broker, Log: log, Cfg: cfg}
    if cfg.Sink.Enabled {
        srv.Sink = sink.NewWorker(s, log, time.Duration(cfg.Sink.IntervalMs)*time.Millisecond, cfg.Sink.RatePerSec, cfg.Sink.Burst)
        srv.Sink.OnResult = func(accountID string, saved bool) {
            typ := "schedule.saved"
            if !saved { typ = "schedule.save_failed" }
            broker.Publish(accountID, ScheduleEvent{Type: typ, Data: map[string]any{"accountId": accountID}})
        }
    }
    return srv, nil
}

// builder constructs the schedule builder for one request, honoring a
// per-request algorithm override.
func (s *Server) builder(algorithm string) (*schedule.Builder, error) {
    if algorithm == "" {
        algorithm = s.Cfg.Sequencer.Algorithm
    }
    seq, err := opt.ForAlgorithm(algorithm, time.Duration(s.Cfg.Sequencer.BudgetMs)*time.Millisecond)
    if err != nil {
        return nil, err
    }
    return &schedule.Builder{
        Sequencer:     seq,
        Estimator:     schedule.Estimator{History: s.Store},
        Log:           s.Log,
        SlackFactor:   s.Cfg.Schedule.SlackFactor,
        SpeedKmh:      s.Cfg.Schedule.SpeedKmh,
        CostPerMinute: s.Cfg.Schedule.CostPerMinute,
    }, nil
}
