package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/moodbuddy/relay/config"
	"github.com/moodbuddy/relay/messages"
	"github.com/moodbuddy/relay/session"
)

// Server accepts inbound client connections and spawns one session
// per connection.
type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
	log            *logrus.Logger
}

func NewServerWebsocket(cfg *config.Config, sessionManager *session.Manager, log *logrus.Logger) *Server {
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		log:            log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024, // 64KB for audio chunks
			WriteBufferSize:   64 * 1024, // 64KB for audio chunks
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
		// No ReadTimeout/WriteTimeout — these interfere with long-lived
		// WebSocket connections. The session layer handles its own
		// deadlines via SetWriteDeadline.
	}

	return s
}

// Start begins listening for connections
func (s *Server) Start() error {
	s.log.Infof("🚀 WebSocket server starting on port %d", s.config.Port)
	s.log.Infof("📡 WebSocket endpoint: ws://localhost:%d/ws", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("🛑 Shutting down server...")
	s.sessionManager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	clientSession, err := s.sessionManager.CreateSession(r.Context(), conn)
	if err != nil {
		s.log.WithError(err).Warn("Failed to create session")
		if data, encErr := messages.Encode(messages.NewErrorFrame(err.Error())); encErr == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		conn.Close()
		return
	}

	s.log.WithField("session", clientSession.ID).Info("✅ New session created")

	// Run drives the full lifecycle and blocks until the session is
	// closed.
	clientSession.Run()

	_ = s.sessionManager.RemoveSession(context.Background(), clientSession.ID)
	s.log.WithField("session", clientSession.ID).Info("🔌 Session closed")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.sessionManager.GetActiveSessionCount())
}
