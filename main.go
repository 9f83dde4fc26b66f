// Command listing-aggregator serves a fair-ordered, cached aggregation of
// channel listings from an upstream content API.
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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mediaflow-hub/listing-aggregator/aggregate"
	"github.com/mediaflow-hub/listing-aggregator/auth"
	"github.com/mediaflow-hub/listing-aggregator/cache"
	"github.com/mediaflow-hub/listing-aggregator/client"
	"github.com/mediaflow-hub/listing-aggregator/config"
	"github.com/mediaflow-hub/listing-aggregator/fetch"
	"github.com/mediaflow-hub/listing-aggregator/ratelimit"
	"github.com/mediaflow-hub/listing-aggregator/server"
)

// Version is set via ldflags at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "listing-aggregator",
	Short: "Aggregate channel listings into one fair-ordered media stream",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("listing-aggregator %s\n", Version)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the aggregation HTTP service",
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, serveCmd)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log.Info().
		Int("port", cfg.Port).
		Str("store_backend", cfg.StoreBackend).
		Msg("Starting listing aggregator")

	var redisClient *redis.Client
	if cfg.StoreBackend == config.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	responseCache, err := cache.New(cfg, redisClient)
	if err != nil {
		return fmt.Errorf("creating response cache: %w", err)
	}
	if mem, ok := responseCache.(*cache.MemoryCache); ok {
		mem.StartSweep(cfg.CacheSweep)
		defer mem.Stop()
	}

	limiter := newLimiter(cfg, redisClient)

	credentials := auth.NewCredentialCache(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.UserAgent, cfg.RequestTimeout)
	listingClient := client.NewHTTPClient(cfg.APIBaseURL, cfg.UserAgent, credentials, cfg.RequestTimeout)
	fetcher := fetch.New(listingClient, responseCache, limiter, ratelimit.Config{
		MaxRequests: cfg.ListingMaxRequests,
		Window:      cfg.ListingWindow,
	}, cfg.CacheTTL)
	engine := aggregate.New(fetcher)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.New(engine, limiter, cfg).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	log.Info().Msg("Shutdown complete")
	return nil
}

// newLimiter picks the rate-limiter backend. Redis gets the atomic
// increment implementation; the Dapr state store has no atomic counter,
// so that backend keeps a per-process limiter alongside its shared cache.
func newLimiter(cfg *config.Config, redisClient *redis.Client) ratelimit.Limiter {
	if cfg.StoreBackend == config.BackendRedis && redisClient != nil {
		return ratelimit.NewRedisLimiter(redisClient)
	}
	return ratelimit.NewMemoryLimiter()
}
