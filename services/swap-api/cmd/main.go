package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/app"
	"go.uber.org/zap"
)

func main() {
	pkg.InitLogger()
	logger := pkg.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := app.NewApp(ctx, logger)
	if err != nil {
		logger.Fatal("failed to build swap-api", zap.Error(err))
	}

	go func() {
		logger.Info("swap-api started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// in-flight rate waits are bounded by RATE_WAIT, well inside this window
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	cleanup()

	_ = logger.Sync()
}
