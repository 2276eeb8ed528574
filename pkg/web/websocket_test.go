package web

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/intent"
)

func TestWebSocketHub_New(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	if hub == nil {
		t.Fatal("NewWebSocketHub returned nil")
	}
	if hub.Name() != "websocket" {
		t.Errorf("Expected sink name websocket, got %s", hub.Name())
	}
}

func TestWebSocketHub_Run(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	cancel()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestWebSocketHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go hub.Run(ctx)

	// Broadcast should not panic even with no clients
	hub.Broadcast(Event{Type: "test", Data: map[string]interface{}{"message": "hello"}})
}

func dialHub(t *testing.T, hub *WebSocketHub, query string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(hub.Handler())
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return conn
}

func TestWebSocketHub_SinkDeliversEvents(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub, "")

	ev := events.Event{
		Time:     time.Now(),
		Type:     "command",
		Mode:     events.ModeRelay,
		PeerIP:   "198.51.100.4",
		PeerPort: 14550,
		Intent:   &intent.Intent{Category: intent.CategoryCommand, MessageID: 76, MessageName: "COMMAND_LONG", CommandID: 400, Command: "COMPONENT_ARM_DISARM"},
	}
	if err := hub.Write(ctx, ev); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var msg struct {
		Type string `json:"type"`
		Data struct {
			Event   events.Event `json:"event"`
			Summary string       `json:"summary"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid message %s: %v", data, err)
	}
	if msg.Type != "event" {
		t.Errorf("Expected type event, got %s", msg.Type)
	}
	if msg.Data.Event.PeerIP != "198.51.100.4" || msg.Data.Event.Intent.Command != "COMPONENT_ARM_DISARM" {
		t.Errorf("Unexpected event %+v", msg.Data.Event)
	}
	if !strings.Contains(msg.Data.Summary, "COMPONENT_ARM_DISARM") {
		t.Errorf("Expected summary to name the command, got %q", msg.Data.Summary)
	}
}

func TestWebSocketHub_TypeFilter(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub, "/?types=command")

	_ = hub.Write(ctx, events.Event{Time: time.Now(), Type: "heartbeat", PeerIP: "198.51.100.4"})
	_ = hub.Write(ctx, events.Event{Time: time.Now(), Type: "command", PeerIP: "198.51.100.5"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if !strings.Contains(string(data), "198.51.100.5") || strings.Contains(string(data), "198.51.100.4") {
		t.Errorf("Expected only the command event, got %s", data)
	}
}

func TestParseTypes(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?types=command,%20request,,", nil)
	types := parseTypes(r)
	if len(types) != 2 || !types["command"] || !types["request"] {
		t.Errorf("Unexpected types %v", types)
	}
	if parseTypes(httptest.NewRequest("GET", "/ws", nil)) != nil {
		t.Error("Expected nil filter without types")
	}
}

func TestWebSocketHub_ClientDisconnect(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub, "")
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEvent_Marshal(t *testing.T) {
	event := Event{
		Type:      "status_update",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"mode": "decoy",
		},
	}

	data, err := event.Marshal()
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	if !strings.Contains(string(data), "status_update") {
		t.Error("Marshaled data doesn't contain event type")
	}
}
