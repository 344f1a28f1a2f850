package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/api"
	"github.com/MaStr/pv-bat-simulator/internal/api/handlers"
	"github.com/MaStr/pv-bat-simulator/internal/config"
	"github.com/MaStr/pv-bat-simulator/internal/data"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Optional YAML file with server settings (environment variables take precedence)")
	flag.Parse()

	cfg, err := config.LoadServer(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}

	results, err := store.New(cfg.ResultsDB)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ResultsDB).Msg("Failed to open results database")
	}
	defer results.Close()

	cache := data.NewPriceCache(cfg.PriceCacheTTL)
	cache.StartJanitor(cfg.PriceCacheTTL)
	defer cache.Close()

	prices := make(map[string]handlers.DayAheadSource, len(data.Markets))
	for market := range data.Markets {
		prices[market] = data.NewAwattarClient(market, cfg.PriceURL(market), cache)
	}

	router := api.NewRouter(api.Deps{
		Engine:     dispatch.New(dispatch.WithLocation(loc)),
		Results:    results,
		Prices:     prices,
		BatteryDir: cfg.BatteryDir,
		StaticDir:  cfg.StaticDir,
		Location:   loc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
