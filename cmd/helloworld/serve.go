package main

import (
	"context"
	stderrors "errors"
	"flag"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/greeter/internal/config"
	"github.com/R3E-Network/greeter/internal/logging"
	"github.com/R3E-Network/greeter/internal/metrics"
	"github.com/R3E-Network/greeter/internal/middleware"
	helloworldmock "github.com/R3E-Network/greeter/services/helloworld/mock"
)

const shutdownTimeout = 30 * time.Second

func runServe(ctx context.Context, cfg *config.Config, logger *logging.Logger, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         *addr,
		Handler:      newServerHandler(ctx, cfg, logger, metrics.New()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", *addr).Infof("%s fake backend listening", cfg.App.Name)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.WithError(err).Error("server error")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
		return 1
	}
	logger.Info("server stopped")
	return 0
}

// newServerHandler serves the fake backend under its prefix and /metrics
// beside it. ctx bounds background work such as rate limiter cleanup.
func newServerHandler(ctx context.Context, cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) http.Handler {
	backend := helloworldmock.New(helloworldmock.Config{
		Prefix: cfg.Mock.Prefix,
		Logger: mockLogger(cfg),
	})
	backend.Router().Use(middleware.Metrics("helloworld-mock", m))

	extra := mux.NewRouter()
	extra.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	mws := []func(http.Handler) http.Handler{
		middleware.Logging(logger),
		middleware.NewCORS(cfg.Origins()).Handler,
	}
	if cfg.Server.RateLimit > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, logger)
		go rl.Run(ctx, time.Minute)
		mws = append(mws, rl.Handler)
	}
	return middleware.Chain(backend.Handler(extra), mws...)
}

// mockLogger logs intercepted requests at debug level when MOCK_DEBUG is set.
func mockLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	if cfg.Mock.Debug {
		level = "debug"
	}
	return logging.New("helloworld-mock", level, cfg.Log.Format)
}
