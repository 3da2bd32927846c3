package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubKeepsLastMessage(t *testing.T) {
	h := NewHub()
	assert.Nil(t, h.Last())

	h.Info("loaded %d nodes", 3)
	require.NotNil(t, h.Last())
	assert.Equal(t, "loaded 3 nodes", h.Last().Message)
	assert.Equal(t, INFO, h.Last().Type)

	h.AnchorProgress("foot", 1005, 1001, 1010)
	last := h.Last()
	assert.Equal(t, PROGRESS, last.Type)
	assert.InDelta(t, 0.5, last.Progress, 1e-6)
	assert.Equal(t, `Anchoring "foot" frame 1005`, last.Message)
}

func TestHubSanitizesProgress(t *testing.T) {
	h := NewHub()
	h.Progress(float32(nanValue()), "nan")
	assert.Equal(t, float32(0), h.Last().Progress)
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

func TestHubBroadcastsToWebsocket(t *testing.T) {
	h := NewHub()
	defer h.Close()
	h.Error("first")

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() Status {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var s Status
		require.NoError(t, json.Unmarshal(data, &s))
		return s
	}

	s := read()
	assert.Equal(t, "first", s.Message)
	assert.Equal(t, ERROR, s.Type)

	h.Info("second")
	assert.Equal(t, "second", read().Message)
}
