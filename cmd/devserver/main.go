package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/erauner12/daycare-client/internal/config"
	"github.com/erauner12/daycare-client/internal/devserver"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	cfg.SetupLogging("daycare-devserver")

	// Refuse the built-in signing secret outside ENV=dev
	if !cfg.IsDev() && cfg.UsesDefaultSecret() {
		log.Fatal().Msg("FATAL: set JWT_HS256_SECRET or run with ENV=dev")
	}

	srv := devserver.New(devserver.Config{Secret: cfg.JWTSecret})
	if err := srv.SeedDemo(); err != nil {
		log.Fatal().Err(err).Msg("failed to seed demo data")
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.IsDev() {
		figure.NewFigure("daycare", "cybermedium", true).Print()
		fmt.Println()
	}

	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("demoPassword", devserver.DemoPassword).
			Msg("starting dev server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	log.Info().Msg("server stopped")
}
