// Package stats implements the statistics command: per-class sample counts
// rebuilt from the dataset's CSV files, plus the sample index view when the
// SQLite index is enabled.
package stats

import (
	"fmt"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/datastore"
	"github.com/ecosort/collector-go/internal/schema"
	"github.com/ecosort/collector-go/internal/stats"
)

// Command creates the stats command.
func Command(settings *conf.Settings) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-class sample counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, settings, recent)
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 0, "Also list the N most recently indexed samples (requires the SQLite index)")

	return cmd
}

func runStats(cmd *cobra.Command, settings *conf.Settings, recent int) error {
	labels := []string{schema.ClassPet, schema.ClassCan, schema.ClassForeign}

	tracker := stats.NewTracker(labels)
	tracker.Rebuild(settings.Data.OutputDir)
	snapshot := tracker.Snapshot()

	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)

	store := datastore.New(settings)
	var indexed map[string]int64
	if store != nil {
		if err := store.Open(); err != nil {
			return fmt.Errorf("opening sample index: %w", err)
		}
		defer store.Close()

		var err error
		indexed, err = store.CountByClass()
		if err != nil {
			return fmt.Errorf("reading sample index: %w", err)
		}
	} else if recent > 0 {
		return fmt.Errorf("--recent requires the sample index, set output.sqlite.enabled")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if indexed != nil {
		fmt.Fprintln(w, "CLASS\tSAMPLES\tINDEXED")
		for _, label := range sorted {
			fmt.Fprintf(w, "%s\t%d\t%d\n", label, snapshot.Classes[label], indexed[label])
		}
	} else {
		fmt.Fprintln(w, "CLASS\tSAMPLES")
		for _, label := range sorted {
			fmt.Fprintf(w, "%s\t%d\n", label, snapshot.Classes[label])
		}
	}
	fmt.Fprintf(w, "total\t%d\n", snapshot.Total)
	if err := w.Flush(); err != nil {
		return err
	}

	if recent > 0 {
		records, err := store.GetRecent(recent)
		if err != nil {
			return fmt.Errorf("reading recent samples: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout())
		rw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(rw, "TIMESTAMP\tCLASS\tIMAGE")
		for i := range records {
			rec := &records[i]
			fmt.Fprintf(rw, "%s\t%s\t%s\n", rec.Timestamp, rec.Class, filepath.Base(rec.ImageFile))
		}
		if err := rw.Flush(); err != nil {
			return err
		}
	}

	return nil
}
