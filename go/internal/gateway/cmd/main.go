package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/geodueler/geodueler/go/internal/dbconfig"
	"github.com/geodueler/geodueler/go/internal/gateway"
	"github.com/geodueler/geodueler/go/internal/realtime"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	port := getEnv("GATEWAY_PORT", "8081")
	natsURL := dbconfig.NATSURLFromEnv()
	dbCfg := dbconfig.NewConfigFromEnv()

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", natsURL).
		Str("port", port).
		Msg("starting room gateway")

	nc, err := realtime.ConnectNATS(natsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	rows, err := realtime.NewRowListener(realtime.DefaultListenerConfig(dbCfg.DSN()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start row-change listener")
	}

	rt := realtime.NewClient(nc, rows)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := rows.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("row-change listener failed")
		}
	}()

	manager := gateway.NewConnectionManager(rt, gateway.DefaultConnectionConfig())
	go manager.Start(ctx)

	handler := gateway.NewWebSocketHandler(manager)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Add health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Add service info
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		connections, _ := manager.GetConnectionStats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"room-gateway","version":"1.0.0","connections":%d}`, connections)
	})

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("room gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
