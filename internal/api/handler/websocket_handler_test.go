package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/domain"
)

func TestWebSocketManager_BroadcastsSessionEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewWebSocketManager(zap.NewNop())
	go hub.Start(ctx)

	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(hub).HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), domain.SessionEvent{EventID: "e1", Type: domain.EventEntryRegistered, PlateText: "KA01AB1234", Slot: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got domain.SessionEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, domain.EventEntryRegistered, got.Type)
	assert.Equal(t, "KA01AB1234", got.PlateText)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketManager_DropsWhenQueueFull(t *testing.T) {
	hub := NewWebSocketManager(zap.NewNop())
	for i := 0; i < broadcastBuffer+5; i++ {
		hub.Notify(context.Background(), domain.SessionEvent{Type: domain.EventSessionsPurged})
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}
