package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vesselinfo/internal/model"
	"github.com/ppiankov/vesselinfo/internal/store"
)

var statsSources bool

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load the configured sources and print store statistics",
	Long: `Stats loads every configured AIS source exactly as serve would and reports
record and vessel counts, the covered time span, duplicates dropped,
optional cells that could not be read and records per navigational status.

Example:
  vesselinfo stats --source data/ais_2024
  vesselinfo stats --source 'data/*.csv.zst' --sources`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringSliceVar(&sourceFlags, "source", nil, "AIS source: file, directory, glob, s3:// or SQL URL (repeatable)")
	statsCmd.Flags().BoolVar(&statsSources, "sources", false, "list rows per source")
}

func runStats(cmd *cobra.Command, args []string) error {
	applyStoreFlags(cfg)

	started := time.Now()
	s, err := loadStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	return writeStats(os.Stdout, s, time.Since(started), statsSources)
}

func writeStats(out io.Writer, s *store.Store, elapsed time.Duration, perSource bool) error {
	st := s.Stats()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Sources:\t%d\n", len(st.Sources))
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", st.Records)
	_, _ = fmt.Fprintf(w, "Vessels:\t%d\n", st.Vessels)
	_, _ = fmt.Fprintf(w, "Duplicates dropped:\t%d\n", st.Duplicates)
	_, _ = fmt.Fprintf(w, "Unreadable optional cells:\t%d\n", st.MalformedOptional)
	if st.Records > 0 {
		_, _ = fmt.Fprintf(w, "Earliest:\t%s\n", st.Earliest.Format(time.RFC3339))
		_, _ = fmt.Fprintf(w, "Latest:\t%s\n", st.Latest.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "Load time:\t%s\n", elapsed.Round(time.Millisecond))

	counts := s.StatusCounts()
	statuses := make([]model.NavStatus, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

	_, _ = fmt.Fprintln(w)
	for _, status := range statuses {
		_, _ = fmt.Fprintf(w, "%d %s\t%d records\n", status, status, counts[status])
	}

	if perSource {
		_, _ = fmt.Fprintln(w)
		for _, src := range st.Sources {
			_, _ = fmt.Fprintf(w, "%s\t%d rows\n", src.Name, src.Rows)
		}
	}
	return w.Flush()
}
