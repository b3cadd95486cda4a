package api

import (
    "context"
    "encoding/json"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so events reach
// subscribers on every replica, not only the one that generated the
// schedule.
type RedisBroker struct {
    rdb *redis.Client
}

func NewRedisBroker(url string) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := rdb.Ping(ctx).Err(); err != nil { return nil, err }
    return &RedisBroker{rdb: rdb}, nil
}

func (b *RedisBroker) Subscribe(accountID string) chan ScheduleEvent {
    ch := make(chan ScheduleEvent, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(accountID))
    // initial consume to ensure subscription
    _, _ = ps.Receive(ctx)
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt ScheduleEvent
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
                select { case ch <- evt: default: }
            }
        }
    }()
    return ch
}

func (b *RedisBroker) Unsubscribe(accountID string, ch chan ScheduleEvent) {
    // the pubsub goroutine exits when its channel closes on connection loss
    close(ch)
}

func (b *RedisBroker) Publish(accountID string, evt ScheduleEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    _ = b.rdb.Publish(ctx, b.chanName(accountID), data).Err()
}

func (b *RedisBroker) chanName(accountID string) string { return "schedule:" + accountID }
