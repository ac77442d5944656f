package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykvlv/dailyping/internal/app"
	"github.com/ykvlv/dailyping/internal/config"
	"github.com/ykvlv/dailyping/internal/logger"
)

// NewRootCommand creates the dailyping command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dailyping",
		Short:         "DailyPing notification engine",
		Long:          "Sends each user one daily ping at their local time, tracks streaks and keeps subscriptions in sync.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewNormalizeCommand())
	return cmd
}

// NewServeCommand runs the scheduler and the HTTP server.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tick loops and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			application, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("app init: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}
}

// NewNormalizeCommand rewrites legacy boolean subscription values.
func NewNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-subscriptions",
		Short: `Rewrite legacy "true"/"false" subscription states to active/inactive`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			n, err := normalize(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			log.Info("subscription states normalized", zap.Int64("rows", n))
			fmt.Fprintf(cmd.OutOrStdout(), "normalized %d users\n", n)
			return nil
		},
	}
}

func normalize(ctx context.Context, cfg config.Config) (int64, error) {
	repo, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer repo.Close()
	return repo.NormalizeSubscriptionStates(ctx)
}

func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
