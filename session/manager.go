package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/moodbuddy/relay/config"
	"github.com/moodbuddy/relay/gemini"
	"github.com/moodbuddy/relay/persona"
	"github.com/moodbuddy/relay/store"
)

// Manager owns all live client sessions: it enforces the session cap,
// mirrors session metadata into Redis when available, and reaps idle
// sessions.
type Manager struct {
	sessions map[string]*ClientSession
	mu       sync.RWMutex

	redis   *redis.Client
	config  *config.Config
	factory UpstreamFactory
	builder *persona.Builder
	log     *logrus.Logger
}

// NewManager builds the manager and its collaborators. Redis and the
// personalization stores are all optional: each degrades independently
// when unreachable.
func NewManager(cfg *config.Config, log *logrus.Logger) (*Manager, error) {
	// Try to connect to Redis, but don't fail if unavailable.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("⚠️ Redis unavailable, session metadata disabled")
		redisClient = nil
	}

	builder := &persona.Builder{
		WindowDays: cfg.JournalWindowDays,
		Log:        log,
	}

	if cfg.PostgresURI != "" {
		profiles, err := store.NewPostgresProfileStore(cfg.PostgresURI)
		if err != nil {
			log.WithError(err).Warn("⚠️ profile store unavailable, trait directives disabled")
		} else {
			builder.Profiles = profiles
		}
	}

	if cfg.MongoURI != "" {
		journal, err := store.NewMongoJournalStore(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.WithError(err).Warn("⚠️ journal store unavailable, mood history disabled")
		} else {
			builder.Journal = journal
		}
	}

	factory := func(ctx context.Context, opts gemini.ConnectOptions) (Upstream, error) {
		proxy, err := gemini.NewProxy(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		if err := proxy.Connect(ctx, opts); err != nil {
			proxy.Close()
			return nil, err
		}
		return proxy, nil
	}

	return &Manager{
		sessions: make(map[string]*ClientSession),
		redis:    redisClient,
		config:   cfg,
		factory:  factory,
		builder:  builder,
		log:      log,
	}, nil
}

// CreateSession registers a new client session. The upstream
// connection opens later, once the session's setup frame arrives.
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*ClientSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.config.MaxSessions {
		return nil, fmt.Errorf("maximum sessions reached")
	}

	sessionID := uuid.New().String()
	session := NewClientSession(sessionID, clientConn, sm.factory, sm.builder, sm.config.MaxBufferSize, sm.config.KeepAlivePeriod, sm.log)

	sm.sessions[sessionID] = session

	if sm.redis != nil {
		sm.redis.HSet(ctx, "session:"+sessionID, map[string]interface{}{
			"created_at":    session.CreatedAt.Format(time.RFC3339),
			"last_activity": session.LastActivity.Format(time.RFC3339),
			"status":        "active",
		})
		sm.redis.SAdd(ctx, "active_sessions", sessionID)
		sm.redis.Expire(ctx, "session:"+sessionID, sm.config.SessionTimeout)
	}

	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *Manager) GetSession(sessionID string) (*ClientSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	return session, exists
}

// RemoveSession cleans up and removes a session.
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	session.Close()
	delete(sm.sessions, sessionID)

	if sm.redis != nil {
		sm.redis.Del(ctx, "session:"+sessionID)
		sm.redis.SRem(ctx, "active_sessions", sessionID)
	}

	return nil
}

// GetActiveSessionCount returns current session count.
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions closes sessions idle past the timeout.
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.IdleSince()) > sm.config.SessionTimeout {
			sm.log.WithField("session", shortID(id)).Infof("🔌 closing session: %s", ReasonIdleTimeout)
			session.Close()
			delete(sm.sessions, id)

			if sm.redis != nil {
				sm.redis.Del(ctx, "session:"+id)
				sm.redis.SRem(ctx, "active_sessions", id)
			}
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions.
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes all sessions.
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.sessions {
		session.Close()
		delete(sm.sessions, id)
	}

	if sm.redis != nil {
		sm.redis.Close()
	}
}
