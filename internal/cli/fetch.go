package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/vesselinfo/internal/fetch"
)

var (
	fetchOutput       string
	fetchWorkers      int
	fetchMatch        string
	fetchList         bool
	fetchIgnoreRobots bool
	fetchRPS          float64
	fetchHTTPProxy    string
	fetchHTTPSProxy   string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [index-url]",
	Short: "Download AIS archives from the NOAA MarineCadastre index",
	Long: `Fetch crawls the NOAA MarineCadastre AIS index page (and its sub-folders)
and downloads every daily archive into the output directory:
- Files that already exist are skipped
- Downloads run on a bounded worker pool with per-host pacing
- robots.txt is honored unless --ignore-robots is set

The store reads .zip archives directly; there is no need to extract them.

Example:
  vesselinfo fetch
  vesselinfo fetch https://coast.noaa.gov/htdata/CMSP/AISDataHandler/2023/index.html --output data/ais_2023
  vesselinfo fetch --match AIS_2024_01_ --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "output directory (default from config)")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "concurrent downloads (default from config)")
	fetchCmd.Flags().StringVar(&fetchMatch, "match", "", "only files whose name contains this substring")
	fetchCmd.Flags().BoolVar(&fetchList, "list", false, "list matching files without downloading")
	fetchCmd.Flags().BoolVar(&fetchIgnoreRobots, "ignore-robots", false, "do not consult robots.txt")
	fetchCmd.Flags().Float64Var(&fetchRPS, "rps", 0, "requests per second per host (default from config)")
	fetchCmd.Flags().StringVar(&fetchHTTPProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	fetchCmd.Flags().StringVar(&fetchHTTPSProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fc := cfg.Fetch
	if len(args) == 1 {
		fc.IndexURL = args[0]
	}
	if fetchOutput != "" {
		fc.OutputDir = fetchOutput
	}
	if fetchWorkers > 0 {
		fc.Workers = fetchWorkers
	}
	if fetchRPS > 0 {
		fc.RequestsPerSecond = fetchRPS
	}
	if fetchIgnoreRobots {
		fc.RespectRobots = false
	}
	if fetchHTTPProxy != "" {
		fc.HTTPProxy = fetchHTTPProxy
	}
	if fetchHTTPSProxy != "" {
		fc.HTTPSProxy = fetchHTTPSProxy
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f := fetch.New(fc, logger.Named("fetch"))

	links, err := f.Crawl(ctx, fc.IndexURL)
	if err != nil {
		return fmt.Errorf("crawl index: %w", err)
	}
	links = filterLinks(links, fetchMatch)

	if fetchList {
		for _, l := range links {
			fmt.Println(l.URL)
		}
		return nil
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  AIS Archive Download\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Index:        %s\n", fc.IndexURL)
	fmt.Fprintf(os.Stderr, "  Files:        %d\n", len(links))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", fc.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", fc.OutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	results, err := f.Download(ctx, links)
	if err != nil {
		logger.Warn("download interrupted", zap.Error(err))
	}

	var downloaded, skipped, failed int
	var bytes int64
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.URL, r.Error)
		case r.Skipped:
			skipped++
		default:
			downloaded++
			bytes += r.Bytes
			fmt.Fprintf(os.Stderr, "✓ %s (%s)\n", filepath.Base(r.Path), humanBytes(r.Bytes))
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Download Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:       %d files\n", len(links))
	fmt.Fprintf(os.Stderr, "  Downloaded:  %d (%s)\n", downloaded, humanBytes(bytes))
	fmt.Fprintf(os.Stderr, "  Skipped:     %d (already present)\n", skipped)
	fmt.Fprintf(os.Stderr, "  Failures:    %d\n", failed)
	fmt.Fprintf(os.Stderr, "\n")

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(links))
	}
	return nil
}

func filterLinks(links []fetch.Link, match string) []fetch.Link {
	if match == "" {
		return links
	}
	var out []fetch.Link
	for _, l := range links {
		if strings.Contains(l.Name, match) {
			out = append(out, l)
		}
	}
	return out
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
