/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize the SQLite store
  3. Wire the engine, reports facade and HTTP handlers
  4. Start the server with graceful shutdown

CONFIGURATION (flag overrides env):
  -port / PORT          HTTP server port (default: 8080)
  -db   / DB_PATH       SQLite database path (default: loans.db)
                        Use ":memory:" for an in-memory database
  -base-url / BASE_URL  Deep-link base for QR codes
                        (default: http://localhost:8080)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM, stop accepting connections, wait up to 30s for
  active requests, close the database, exit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/equipment-ledger/api"
	"github.com/warp/equipment-ledger/qrlink"
	"github.com/warp/equipment-ledger/store/sqlite"
)

func main() {
	// .env is optional; flags win over environment values.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "loans.db"), "SQLite database path")
	baseURL := flag.String("base-url", envStr("BASE_URL", "http://localhost:8080"), "deep-link base URL for QR codes")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, qrlink.NewBuilder(*baseURL))
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Equipment loan service listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
