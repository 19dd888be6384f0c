package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moodbuddy/relay/config"
	"github.com/moodbuddy/relay/logger"
	"github.com/moodbuddy/relay/server"
	"github.com/moodbuddy/relay/session"
)

func main() {
	log := logger.New()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	// Create session manager
	sessionManager, err := session.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create session manager")
	}

	// Start cleanup routine
	ctx, cancel := context.WithCancel(context.Background())
	go sessionManager.StartCleanupRoutine(ctx)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	srv := server.NewServerWebsocket(cfg, sessionManager, log)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.WithError(err).Fatal("Server error")
	}

	log.Info("Server stopped")
}
