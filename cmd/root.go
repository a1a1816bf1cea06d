package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecosort/collector-go/cmd/collect"
	"github.com/ecosort/collector-go/cmd/export"
	"github.com/ecosort/collector-go/cmd/stats"
	"github.com/ecosort/collector-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "collector",
		Short: "Labeled image sample collector CLI",
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		collect.Command(settings),
		export.Command(settings),
		stats.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.Data.OutputDir, "out", "o", viper.GetString("data.outputdir"), "Root dataset directory")
	rootCmd.PersistentFlags().StringVar(&settings.Classes.Pet, "pet", viper.GetString("classes.pet"), "Path to the PET class schema")
	rootCmd.PersistentFlags().StringVar(&settings.Classes.Can, "can", viper.GetString("classes.can"), "Path to the CAN class schema")
	rootCmd.PersistentFlags().StringVar(&settings.Classes.Foreign, "foreign", viper.GetString("classes.foreign"), "Path to the FOREIGN class schema")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
