package preview

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"agrovision/internal/logger"
)

func startHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()

	hub := NewHub(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn)
	}))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return hub, "ws" + strings.TrimPrefix(server.URL, "http"), cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients, have %d", n, hub.ClientCount())
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Invalid JSON %q: %v", data, err)
	}
	return msg
}

func TestHub_SightingReachesAllViewers(t *testing.T) {
	hub, url, _ := startHub(t)

	first := dial(t, url)
	second := dial(t, url)
	waitForClients(t, hub, 2)

	at := time.Date(2025, 6, 15, 7, 45, 0, 0, time.UTC)
	hub.NotifySighting(7, at)

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != "sighting" || msg.MarkerID == nil || *msg.MarkerID != 7 {
			t.Errorf("Unexpected message %+v", msg)
		}
		if msg.At != "2025-06-15T07:45:00Z" {
			t.Errorf("Unexpected timestamp %q", msg.At)
		}
	}
}

func TestHub_FrameIsBase64(t *testing.T) {
	hub, url, _ := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	hub.PublishFrame([]byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9})

	msg := readMessage(t, conn)
	if msg.Type != "frame" {
		t.Fatalf("Expected frame message, got %q", msg.Type)
	}
	data, err := base64.StdEncoding.DecodeString(msg.Image)
	if err != nil || len(data) != 5 || data[0] != 0xFF {
		t.Errorf("Unexpected frame payload %v (%v)", data, err)
	}
}

func TestHub_ViewerDisconnectUnregisters(t *testing.T) {
	hub, url, _ := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitForClients(t, hub, 0)
}

func TestHub_PublishWithoutViewersDoesNotBlock(t *testing.T) {
	hub := NewHub(logger.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.NotifySighting(i, time.Now())
			hub.Broadcast([]byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publishing blocked on a hub that is not running")
	}
}

func TestHub_StopDisconnectsViewers(t *testing.T) {
	hub, url, cancel := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("Expected normal close after hub stop, got %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected no clients after stop, got %d", hub.ClientCount())
	}
}
