package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depthmeter-go/internal/config"
	"depthmeter-go/internal/processing"
)

func TestHandleConfig(t *testing.T) {
	cfg := config.Default()
	cfg.RunSize = 12
	cfg.Port = 9999
	srv := New(cfg, Hooks{})

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["run_size"].(float64) != 12 {
		t.Fatalf("unexpected run_size: %v", payload["run_size"])
	}
	if payload["port"].(float64) != 9999 {
		t.Fatalf("unexpected port: %v", payload["port"])
	}
}

func TestHandleStatusAddsClientCount(t *testing.T) {
	srv := New(config.Default(), Hooks{
		Status: func() map[string]any {
			return map[string]any{"meter": "idle", "metrics": map[string]any{}}
		},
	})
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "idle", payload["meter"])
	assert.Equal(t, float64(0), payload["metrics"].(map[string]any)["ws_clients"])
}

func TestHandleCapture(t *testing.T) {
	armed := false
	srv := New(config.Default(), Hooks{
		Capture: func() error {
			if armed {
				return processing.ErrCaptureInProgress
			}
			armed = true
			return nil
		},
		Cancel: func() error { return processing.ErrNoCapture },
	})

	rec := httptest.NewRecorder()
	srv.handleCapture(rec, httptest.NewRequest(http.MethodPost, "/capture", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	srv.handleCapture(rec, httptest.NewRequest(http.MethodPost, "/capture", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capture already in progress")

	rec = httptest.NewRecorder()
	srv.handleCapture(rec, httptest.NewRequest(http.MethodDelete, "/capture", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	srv.handleCapture(rec, httptest.NewRequest(http.MethodGet, "/capture", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleCaptureWithoutPipeline(t *testing.T) {
	srv := New(config.Default(), Hooks{})
	rec := httptest.NewRecorder()
	srv.handleCapture(rec, httptest.NewRequest(http.MethodPost, "/capture", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebsocketCaptureAndBroadcast(t *testing.T) {
	captures := make(chan struct{}, 1)
	srv := New(config.Default(), Hooks{
		Capture: func() error {
			captures <- struct{}{}
			return nil
		},
		Result: func() any { return map[string]any{"type": "result", "sequence": 3} },
	})
	handler, err := srv.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages := make(chan any, 1)
	go srv.broadcast(ctx, messages)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "config", msg["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "capture_request"}))
	msg = nil
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ack", msg["type"])
	assert.Equal(t, true, msg["ok"])
	select {
	case <-captures:
	case <-time.After(5 * time.Second):
		t.Fatal("capture hook not called")
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "result_request"}))
	msg = nil
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, float64(3), msg["sequence"])

	messages <- map[string]any{"type": "reading", "cm": 45.5}
	msg = nil
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reading", msg["type"])
	assert.Equal(t, 45.5, msg["cm"])
}
