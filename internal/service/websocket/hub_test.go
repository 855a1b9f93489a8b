package websocket

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objectlens/internal/dto"
	"objectlens/internal/logger"
	"objectlens/internal/model"
	"objectlens/internal/pipeline"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func startHub(t *testing.T) (*HubService, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHubService(logger.Discard())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("viewer was not registered")
	}
	return hub, client
}

func TestHub_PublishesOverlay(t *testing.T) {
	hub, client := startHub(t)

	hub.Publish(&pipeline.Overlay{
		Generation: 3,
		Camera:     "yard",
		Threshold:  0.5,
		Image:      image.NewRGBA(image.Rect(0, 0, 4, 4)),
		Boxed: []model.DetectionRecord{
			{Label: "dog", Category: "Animal", Confidence: 0.9, BBox: &model.BBox{W: 2, H: 2}, Attributes: []string{}, Provenance: model.ProvenanceLocalOnly},
		},
		Panel: []model.DetectionRecord{
			{Label: "Scene", Category: "Scene", Confidence: 0.95, Attributes: []string{}, Provenance: model.ProvenanceScene},
		},
	})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var msg dto.OverlayMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.EqualValues(t, 3, msg.Generation)
	assert.Equal(t, "yard", msg.Camera)
	assert.NotEmpty(t, msg.Image)
	require.Len(t, msg.Records, 1)
	assert.Equal(t, "dog", msg.Records[0].Label)
	require.Len(t, msg.Panel, 1)
	assert.Nil(t, msg.Panel[0].BBox)
}

func TestHub_RegisterAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHubService(logger.Discard())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Register(nil))
	hub.Unregister(nil)
}

func TestHub_BroadcastDropsWhenFull(t *testing.T) {
	hub := NewHubService(logger.Discard())
	for i := 0; i < broadcastBuffer+3; i++ {
		hub.Broadcast([]byte("x"))
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}
