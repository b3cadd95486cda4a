package api

import (
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    account := "acct-1"
    ch := b.Subscribe(account)

    evt := ScheduleEvent{Type: "schedule.generated", Data: map[string]any{"jobs": 3}}
    b.Publish(account, evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["jobs"].(int) != 3 { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(account, ch)
    select {
    case _, ok := <-ch:
        if ok { t.Fatal("channel should be closed after unsubscribe") }
    case <-time.After(50 * time.Millisecond):
        // acceptable if already drained and closed
    }
}

func TestBrokerDropsWhenSubscriberSlow(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("acct-1")
    defer b.Unsubscribe("acct-1", ch)
    // fill the buffer and keep publishing; Publish must never block
    done := make(chan struct{})
    go func() {
        for i := 0; i < 100; i++ {
            b.Publish("acct-1", ScheduleEvent{Type: "schedule.generated"})
        }
        close(done)
    }()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("publish blocked on a slow subscriber")
    }
}

func TestRedisBrokerRoundTrip(t *testing.T) {
    mr := miniredis.RunT(t)
    b, err := NewRedisBroker("redis://" + mr.Addr())
    if err != nil { t.Fatalf("redis broker: %v", err) }
    ch := b.Subscribe("acct-1")
    // give the subscription goroutine a beat to attach
    time.Sleep(50 * time.Millisecond)
    b.Publish("acct-1", ScheduleEvent{Type: "schedule.saved", Data: map[string]any{"accountId": "acct-1"}})
    select {
    case got := <-ch:
        if got.Type != "schedule.saved" { t.Fatalf("got type %s", got.Type) }
    case <-time.After(2 * time.Second):
        t.Fatal("timeout waiting for redis event")
    }
}
