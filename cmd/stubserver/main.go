// adlens-stubserver — a local stand-in for the analysis backends.
//
// Serves POST /api/{category}/analyze and GET /api/{category}/health
// for every category (plus the legacy single-endpoint routes when
// requested), returning canned analysis text. Useful for developing
// the client against a predictable backend.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adlens/adlens/internal/category"
	"github.com/adlens/adlens/internal/devstub"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		port    = flag.Int("port", 8090, "listen port")
		keys    = flag.String("keys", "", "comma-separated bearer tokens; empty disables auth")
		failRaw = flag.String("fail", "", "comma-separated categories that answer 503")
		single  = flag.Bool("single-endpoint", false, "also mount /api/analyze and /api/health")
		latency = flag.Duration("latency", 0, "artificial delay per analyze request")
	)
	flag.Parse()

	opts := devstub.Options{
		SingleEndpoint: *single,
		Latency:        *latency,
	}
	if *keys != "" {
		opts.APIKeys = strings.Split(*keys, ",")
	}
	for _, raw := range strings.Split(*failRaw, ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		cat, err := category.Parse(raw)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -fail category")
		}
		opts.FailCategories = append(opts.FailCategories, cat)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      devstub.New(opts).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().
		Int("port", *port).
		Bool("auth", len(opts.APIKeys) > 0).
		Msg("adlens stub backend listening")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
