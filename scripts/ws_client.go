// Package main runs a demo client: it submits a small solve against a local
// railnav API and tails the solve event stream over WebSocket.
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

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	body := []byte(`{
		"network": {
			"name": "demo",
			"yards": [
				{"id": "CHI", "status": "active"},
				{"id": "STL", "status": "active"},
				{"id": "MEM", "status": "active"}
			],
			"edges": [
				{"from": "CHI", "to": "STL", "capacity": 120, "baseCost": 3},
				{"from": "STL", "to": "MEM", "capacity": 120, "baseCost": 4},
				{"from": "CHI", "to": "MEM", "capacity": 40, "baseCost": 9}
			]
		},
		"demands": [
			{"origin": "CHI", "destination": "MEM", "quantity": 60, "commodity": "coal", "priority": "high"},
			{"origin": "CHI", "destination": "MEM", "quantity": 30, "commodity": "containers", "priority": "low"}
		],
		"baselines": true
	}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out struct {
		ID        string  `json:"id"`
		Status    string  `json:"status"`
		Objective float64 `json:"objective"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatal(err)
	}
	if out.ID == "" {
		log.Fatal("no solve id returned")
	}
	log.Printf("Solve %s: status=%s objective=%v", out.ID, out.Status, out.Objective)

	// Tail the event stream for the solve
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solves/" + out.ID + "/events"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&evt); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %v", evt.Type, evt.Data)
		}
	}()

	select {
	case <-time.After(5 * time.Second):
	case <-done:
	}
}
