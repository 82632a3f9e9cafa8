package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
)

// NewEcho builds the router with the shared middleware chain.
func NewEcho(cfg config.Config, log *slog.Logger, d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.EchoValidator{}

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log, cfg.HTTP.LogBodies))
	e.Use(middleware.Metrics())

	RegisterRoutes(e, d)
	return e
}

// Run serves until ctx is cancelled, then shuts down within the configured timeout.
func Run(ctx context.Context, cfg config.Config, log *slog.Logger, e *echo.Echo) error {
	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      e,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
