package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket stream of schedule events for clients that outlive a single SSE
// connection (the mobile day view). Protocol: client sends
// {"type":"subscribe","accountId":"..."}; server acks and streams
// {"type":"event","event":{...}} frames until the client unsubscribes or
// disconnects.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type      string          `json:"type"`
	AccountID string          `json:"accountId,omitempty"`
	Event     *ScheduleEvent  `json:"event,omitempty"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ScheduleWSHandler handles /v1/schedule/ws.
func (s *Server) ScheduleWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	var writeMu chan struct{} = make(chan struct{}, 1)
	writeMu <- struct{}{}
	write := func(v any) error {
		<-writeMu
		defer func() { writeMu <- struct{}{} }()
		return conn.WriteJSON(v)
	}

	p := s.getPrincipal(r)
	var subbed string
	var ch chan ScheduleEvent

	// keepalive
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := write(wsMessage{Type: "ping"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			account := msg.AccountID
			if account == "" {
				account = p.Account
			}
			// only admins may watch other accounts
			if account != p.Account && !p.IsAdmin() {
				_ = write(wsMessage{Type: "error", Error: "forbidden"})
				continue
			}
			if ch != nil {
				s.Broker.Unsubscribe(subbed, ch)
			}
			subbed = account
			ch = s.Broker.Subscribe(account)
			_ = write(wsMessage{Type: "subscribed", AccountID: account})
			go func(c chan ScheduleEvent) {
				for evt := range c {
					e := evt
					if err := write(wsMessage{Type: "event", Event: &e}); err != nil {
						return
					}
				}
			}(ch)
		case "unsubscribe":
			if ch != nil {
				s.Broker.Unsubscribe(subbed, ch)
				ch = nil
				subbed = ""
			}
		default:
			// ignore
		}
	}
	if ch != nil {
		s.Broker.Unsubscribe(subbed, ch)
	}
}
