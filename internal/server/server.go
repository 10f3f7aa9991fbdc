package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"depthmeter-go/internal/config"
	"depthmeter-go/internal/processing"
)

//go:embed web/*
var webFS embed.FS

// Hooks connect the server to the measurement pipeline. Any of them may be
// nil.
type Hooks struct {
	Status  func() map[string]any
	Result  func() any
	Config  func() map[string]any
	Capture func() error
	Cancel  func() error
}

type Server struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.Mutex
	cfg      config.AppConfig
	hooks    Hooks
}

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

func New(cfg config.AppConfig, hooks Hooks) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		cfg:     cfg,
		hooks:   hooks,
	}
}

func (s *Server) Handler() (http.Handler, error) {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(sub)))
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/capture", s.handleCapture)
	mux.Handle("/metrics", promhttp.Handler())
	return mux, nil
}

// Run serves until ctx is done, broadcasting every value read from
// messages to websocket clients as JSON.
func (s *Server) Run(ctx context.Context, messages <-chan any) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	go s.broadcast(ctx, messages)

	err = httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.mu.Lock()
	writeMu := &sync.Mutex{}
	s.clients[conn] = writeMu
	s.mu.Unlock()
	log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	_ = s.writeJSON(conn, writeMu, s.configPayload())

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := s.writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer s.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(payload, &request); err != nil {
				continue
			}
			if reply := s.handleRequest(request.Type); reply != nil {
				_ = s.writeJSON(conn, writeMu, reply)
			}
		}
	}()
}

// handleRequest answers one websocket request. A nil reply sends nothing.
func (s *Server) handleRequest(kind string) any {
	switch kind {
	case "capture_request":
		return ackPayload(kind, call(s.hooks.Capture))
	case "capture_cancel":
		return ackPayload(kind, call(s.hooks.Cancel))
	case "result_request":
		if s.hooks.Result == nil {
			return nil
		}
		return s.hooks.Result()
	default:
		return nil
	}
}

func call(fn func() error) error {
	if fn == nil {
		return errors.New("not available")
	}
	return fn()
}

func ackPayload(kind string, err error) map[string]any {
	payload := map[string]any{"type": "ack", "request": kind, "ok": err == nil}
	if err != nil {
		payload["error"] = err.Error()
	}
	return payload
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) configPayload() map[string]any {
	if s.hooks.Config != nil {
		if cfg := s.hooks.Config(); cfg != nil {
			return cfg
		}
	}
	return map[string]any{
		"type":     "config",
		"run_size": s.cfg.RunSize,
		"port":     s.cfg.Port,
		"debug":    s.cfg.Debug,
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.configPayload())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if s.hooks.Status != nil {
		payload = s.hooks.Status()
	}
	if metrics, ok := payload["metrics"].(map[string]any); ok {
		metrics["ws_clients"] = s.clientCount()
	} else {
		payload["ws_clients"] = s.clientCount()
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var err error
	switch r.Method {
	case http.MethodPost:
		err = call(s.hooks.Capture)
	case http.MethodDelete:
		err = call(s.hooks.Cancel)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := http.StatusAccepted
	switch {
	case err == nil:
	case errors.Is(err, processing.ErrCaptureInProgress), errors.Is(err, processing.ErrNoCapture):
		status = http.StatusConflict
	default:
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ackPayload("capture", err))
}

func (s *Server) broadcast(ctx context.Context, messages <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				log.Warn().Err(err).Msg("broadcast encode failed")
				continue
			}
			var stale []*websocket.Conn
			s.mu.Lock()
			for conn, writeMu := range s.clients {
				if err := s.writeMessage(conn, writeMu, websocket.TextMessage, payload); err != nil {
					stale = append(stale, conn)
				}
			}
			s.mu.Unlock()
			for _, conn := range stale {
				s.removeClient(conn)
			}
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, payload any) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func (s *Server) writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
