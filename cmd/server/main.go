/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags, env overriding defaults
  2. Configure structured logging
  3. Initialize SQLite store
  4. Wire services: directory -> leave manager -> attendance service
  5. Start server with graceful shutdown

CONFIGURATION:
  -port / PORT              HTTP server port (default: 8080)
  -db / DB_PATH             SQLite database path (default: attendance.db)
                            Use ":memory:" for in-memory database
  -geocoder / GEOCODER_URL  Reverse geocoding endpoint; empty disables
                            geocoding (punches store "address unknown")
  LOG_LEVEL                 logrus level (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/falconhr/attendance-engine/api"
	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/geo"
	"github.com/falconhr/attendance-engine/leave"
	"github.com/falconhr/attendance-engine/notify"
	"github.com/falconhr/attendance-engine/store/sqlite"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "attendance.db"), "SQLite database path")
	geocoderURL := flag.String("geocoder", envStr("GEOCODER_URL", ""), "reverse geocoding endpoint (empty disables)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	if level, err := logrus.ParseLevel(envStr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	var geocoder geo.Geocoder
	if *geocoderURL != "" {
		geocoder = geo.NewClient(*geocoderURL, log)
	}
	sink := &notify.LogSink{Log: log}

	leaveManager := leave.NewManager(store, store, sink, log)
	attendanceService := attendance.NewService(store, store, leaveManager, geocoder, sink, log)

	handler := api.NewHandler(attendanceService, leaveManager, store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": *port, "db": *dbPath}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
