package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkin-companion/internal/config"
	"checkin-companion/internal/devserver"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger().With().Str("component", "DevServer").Logger()

	fixture, err := devserver.LoadFixture(cfg.DevServerFixture)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load fixture")
	}

	opts := []devserver.Option{devserver.WithLogger(log)}
	if cfg.DevServerToken != "" {
		opts = append(opts, devserver.WithToken(cfg.DevServerToken))
	}
	srv := &http.Server{
		Addr:              cfg.DevServerAddr,
		Handler:           devserver.New(fixture, opts...).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", cfg.DevServerAddr).
			Int("sessions", len(fixture.Sessions)).
			Int("events", len(fixture.Events)).
			Int("participants", len(fixture.Participants)).
			Msg("Serving check-in API under /api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Stopped")
}
