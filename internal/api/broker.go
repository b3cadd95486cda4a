package api

import (
    "sync"
)

// ScheduleEvent is a schedule lifecycle notification fanned out to account
// subscribers (SSE and WebSocket).
type ScheduleEvent struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

type EventBroker interface {
    Subscribe(accountID string) chan ScheduleEvent
    Unsubscribe(accountID string, ch chan ScheduleEvent)
    Publish(accountID string, evt ScheduleEvent)
}

// Broker is the in-process fanout used when no Redis is configured.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan ScheduleEvent]struct{} // accountId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan ScheduleEvent]struct{}{}}
}

func (b *Broker) Subscribe(accountID string) chan ScheduleEvent {
    ch := make(chan ScheduleEvent, 8)
    b.mu.Lock()
    if b.subs[accountID] == nil { b.subs[accountID] = map[chan ScheduleEvent]struct{}{} }
    b.subs[accountID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(accountID string, ch chan ScheduleEvent) {
    b.mu.Lock()
    if m := b.subs[accountID]; m != nil {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, accountID) }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *Broker) Publish(accountID string, evt ScheduleEvent) {
    b.mu.Lock()
    m := b.subs[accountID]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
