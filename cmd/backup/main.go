// cmd/backup/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/semmidev/strata/internal/app"
	"github.com/semmidev/strata/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		log.Fatalf("Error: %v\n", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "backup",
		Short:         "Chunked directory backups to object storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return schedule(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "schedule",
			Short: "Run backups on the configured cron schedule",
			RunE: func(cmd *cobra.Command, args []string) error {
				return schedule(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Run a single backup now",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(configPath, func(a *app.App) error {
					res, err := a.RunOnce(cmd.Context())
					if res != nil {
						fmt.Printf("%s: %d of %d segment(s) uploaded in %s\n",
							res.State, res.SegmentsUploaded, res.SegmentsCreated, res.Duration.Round(time.Millisecond))
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Apply the retention window to the staging directory",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(configPath, func(a *app.App) error {
					_, err := a.Sweep(cmd.Context())
					return err
				})
			},
		},
	)

	return root
}

func schedule(ctx context.Context, configPath string) error {
	return withApp(configPath, func(a *app.App) error {
		return a.Run(ctx)
	})
}

func withApp(configPath string, fn func(*app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return fn(application)
}
