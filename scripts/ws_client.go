// Demo client: subscribes to schedule events over WebSocket, then
// triggers a schedule run so events flow. Run the API first, then:
//
//	go run scripts/ws_client.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type      string          `json:"type"`
	AccountID string          `json:"accountId,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/schedule/ws"}
	hdr := http.Header{}
	hdr.Set("X-Account-Id", "acct_demo")
	hdr.Set("X-Role", "owner")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "subscribe", AccountID: "acct_demo"}); err != nil {
		log.Fatal(err)
	}
	var ack wsMessage
	if err := c.ReadJSON(&ack); err != nil {
		log.Fatal(err)
	}
	if ack.Type != "subscribed" {
		log.Fatalf("subscribe failed: %+v", ack)
	}
	log.Printf("subscribed to %s", ack.AccountID)

	go func() {
		time.Sleep(500 * time.Millisecond)
		body := []byte(`{"accountId":"acct_demo"}`)
		req, _ := http.NewRequest(http.MethodPost,
			fmt.Sprintf("http://localhost:%s/v1/schedule", port), bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Account-Id", "acct_demo")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Printf("schedule request failed: %v", err)
			return
		}
		_ = resp.Body.Close()
		log.Printf("schedule request: %s", resp.Status)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg wsMessage
			if err := c.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "ping":
				_ = c.WriteJSON(wsMessage{Type: "pong"})
			case "event":
				log.Printf("event: %s", string(msg.Event))
			case "error":
				log.Printf("error: %s", msg.Error)
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
		log.Printf("done listening")
	case <-done:
	}
}
