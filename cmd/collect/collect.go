// Package collect implements the capture session command: frame source plus
// web front-end bound to the labeling core.
package collect

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecosort/collector-go/internal/api"
	"github.com/ecosort/collector-go/internal/camera"
	"github.com/ecosort/collector-go/internal/collector"
	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/logging"
)

// Command creates the collect command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run a labeling session with the web UI",
		Long:  "Start the frame source and the web front-end, and collect labeled samples into the dataset directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Camera.Source, "source", viper.GetString("camera.source"), "Frame source, a directory of still images")
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the web UI")
	cmd.Flags().StringVar(&settings.Data.Layout, "layout", viper.GetString("data.layout"), "Dataset layout, \"flat\" or \"session\"")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

func runCollect(settings *conf.Settings) error {
	logger := logging.ForService("collect")

	// The web UI is the only input surface, a session without it cannot
	// accept labels or commits.
	if !settings.WebServer.Enabled {
		return fmt.Errorf("webserver is disabled, collect requires the web front-end (set webserver.enabled)")
	}

	core, err := collector.New(settings)
	if err != nil {
		return fmt.Errorf("initializing collector: %w", err)
	}
	defer core.Close()

	if settings.Camera.Source == "" {
		return fmt.Errorf("no frame source configured, set camera.source or --source")
	}

	source, err := camera.NewStillSource(settings.Camera.Source, camera.Mode{
		Width:  settings.Camera.Width,
		Height: settings.Camera.Height,
		FPS:    settings.Camera.FPS,
	})
	if err != nil {
		return fmt.Errorf("opening frame source: %w", err)
	}
	defer source.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("starting frame source: %w", err)
	}

	logger.Info("labeling session started",
		"session", core.SessionID(),
		"dataset", core.DatasetDir(),
		"source", settings.Camera.Source)

	controller := api.New(settings, core, source)
	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("web server: %w", err)
	}

	logger.Info("labeling session stopped")
	return nil
}
