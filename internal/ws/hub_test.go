package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secondhand/marketplace-backend/internal/models"
)

type savedNotification struct {
	userID int64
	event  string
}

type fakeNotificationService struct {
	mu    sync.Mutex
	saved []savedNotification
	err   error
}

func (f *fakeNotificationService) CreateNotification(ctx context.Context, userID int64, event string, data any) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, savedNotification{userID: userID, event: event})
	return &models.Notification{UserID: userID}, nil
}

func (f *fakeNotificationService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// dialUser поднимает сервер, регистрирующий соединение за userID, и подключается к нему.
func dialUser(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, hub, userID)
		if hub.Register(client) {
			client.Run(r.Context())
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_BroadcastToUser(t *testing.T) {
	hub := startHub(t)
	saver := &fakeNotificationService{}
	hub.SetNotificationSaver(NewNotificationServiceAdapter(saver))

	conn := dialUser(t, hub, 7)

	require.NoError(t, hub.BroadcastToUser(7, models.EventOfferReceived, map[string]any{"offer_id": 1}))
	assert.Equal(t, 1, saver.count(), "notification must be stored before BroadcastToUser returns")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, models.EventOfferReceived, msg.Type)
	assert.Equal(t, 1, msg.Data["offer_id"])
}

func TestHub_OtherUsersDoNotReceive(t *testing.T) {
	hub := startHub(t)
	conn := dialUser(t, hub, 8)

	require.NoError(t, hub.BroadcastToUser(9, models.EventOfferRejected, nil))
	require.NoError(t, hub.BroadcastToUser(8, models.EventOfferAccepted, nil))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), models.EventOfferAccepted)
}

func TestHub_SaverErrorDoesNotBreakDelivery(t *testing.T) {
	hub := startHub(t)
	hub.SetNotificationSaver(NewNotificationServiceAdapter(&fakeNotificationService{err: errors.New("db down")}))
	conn := dialUser(t, hub, 5)

	require.NoError(t, hub.BroadcastToUser(5, models.EventSaleCompleted, map[string]any{"transaction_id": 1}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.NoError(t, err)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub := startHub(t)
	conn := dialUser(t, hub, 11)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ConnectedClients(11) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			_ = hub.BroadcastToUser(1, models.EventOfferReceived, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastToUser blocked after hub stopped")
	}
	assert.False(t, hub.Register(&Client{userID: 1, send: make(chan []byte, 1)}))
}
