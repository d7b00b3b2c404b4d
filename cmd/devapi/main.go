// Command devapi serves generated NBA players on the sportsdata.io player
// path so a provisioning run can be pointed at it with NBA_ENDPOINT.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/nbalake/internal/devapi"
	"github.com/okian/nbalake/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers    = 500
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	var (
		addr    = flag.String("addr", ":9090", "Listen address")
		key     = flag.String("key", "", "Subscription key to require (empty accepts any)")
		players = flag.Int("players", defaultPlayers, "Number of players to serve")
		seed    = flag.Int64("seed", 1, "Seed for player generation")
		fail    = flag.Int("fail", 0, "Answer every request with this HTTP status")
		format  = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.InitWithOptions(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	log := logger.Named("devapi")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []devapi.Option{devapi.WithPlayers(devapi.GeneratePlayers(*players, *seed))}
	if *fail != 0 {
		opts = append(opts, devapi.WithFailStatus(*fail))
	}
	mux := http.NewServeMux()
	devapi.NewServer(*key, opts...).Register(mux)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		log.Info(ctx, "dev api listening",
			logger.String("addr", *addr),
			logger.String("path", devapi.PlayersPath),
			logger.Int("players", *players),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "dev api server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "dev api shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "dev api stopped")
}
