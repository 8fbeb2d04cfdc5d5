package main

import (
	"context"
	"fmt"

	"github.com/brizzai/imagefeed/internal/auth"
	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/mainloop"
	"github.com/brizzai/imagefeed/internal/profile"
	"github.com/brizzai/imagefeed/internal/requester"
	"github.com/brizzai/imagefeed/internal/server"
	"github.com/brizzai/imagefeed/internal/session"
	"github.com/brizzai/imagefeed/internal/tokenstore"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// withApp loads the configuration, starts the service graph, fills targets
// and runs fn. The graph is stopped again when fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context) error, targets ...interface{}) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return logger.FxLogger(l)
		}),
		logger.Module,
		mainloop.Module,
		tokenstore.Module,
		requester.Module,
		auth.Module,
		profile.Module,
		feed.Module,
		session.Module,
		server.Module,
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	ctx := cmd.Context()
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			logger.Warn("failed to stop application", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	return fn(ctx)
}
