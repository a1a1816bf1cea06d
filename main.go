package main

import (
	"log/slog"
	"os"

	"github.com/ecosort/collector-go/cmd"
	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("error loading configuration", "error", err)
	}

	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	if settings.Main.Log.Enabled {
		closeLog, err := logging.EnableFileOutput(settings.Main.Log.Path)
		if err != nil {
			logging.Fatal("error opening log file", "path", settings.Main.Log.Path, "error", err)
		}
		defer closeLog() //nolint:errcheck // best effort on shutdown
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
