// Package export implements the bulk export command: consolidate every
// persisted sidecar into one CSV.
package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/export"
)

// Command creates the export command.
func Command(settings *conf.Settings) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all collected samples to one CSV file",
		Long:  "Walk every JSON sidecar under the dataset directory and flatten them into a single consolidated CSV. Corrupt sidecars are skipped, not fatal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(settings, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output CSV path (default: export_<timestamp>.csv in the dataset directory)")
	cmd.Flags().StringVar(&settings.Export.CSV.AttrPrefix, "attrprefix", viper.GetString("export.csv.attrprefix"), "Prefix for attribute columns")

	return cmd
}

func runExport(settings *conf.Settings, outputFile string) error {
	exporter := export.NewExporter(export.FlattenOptions{
		IncludeTimestamp: settings.Export.CSV.IncludeTimestamp,
		AttrPrefix:       settings.Export.CSV.AttrPrefix,
		BoolTrue:         settings.Export.CSV.BoolTrue,
		BoolFalse:        settings.Export.CSV.BoolFalse,
	}, export.CSVOptions{
		Delimiter: rune(settings.Export.CSV.Delimiter[0]),
		BOM:       settings.Export.CSV.BOM,
	})

	records, err := exporter.Export(settings.Data.OutputDir)
	if err != nil {
		return err
	}

	if outputFile == "" {
		outputFile = filepath.Join(settings.Data.OutputDir,
			"export_"+time.Now().Format("20060102_150405")+".csv")
	}

	if err := exporter.WriteCSV(records, outputFile); err != nil {
		return err
	}

	fmt.Printf("Exported %d records to %s\n", len(records), outputFile)
	return nil
}
