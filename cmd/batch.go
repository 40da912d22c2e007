package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/headers-cz/sec-phantomraven-checker/batch"
	"github.com/headers-cz/sec-phantomraven-checker/scanner"
)

var (
	listFile string
	maxDepth int
)

var batchCmd = &cobra.Command{
	Use:   "batch [root]",
	Short: "Scan many repositories concurrently",
	Long: `Scan a set of repositories with a pool of workers and print one
aggregated report.

Repositories are either discovered below root (directories containing .git,
up to --max-depth levels deep) or read from --list, one path per line with
blank and '#' lines ignored.

Examples:
  phantomraven-checker batch ~/src
  phantomraven-checker batch ~/src --max-depth 2 -w 16
  phantomraven-checker batch --list repos.txt -o csv -f report.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&listFile, "list", "l", "", "File with one repository path per line")
	batchCmd.Flags().IntVar(&maxDepth, "max-depth", batch.DefaultMaxDepth, "Maximum discovery depth below root (env PHANTOMRAVEN_MAX_DEPTH)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	var paths []string
	if listFile != "" {
		if len(args) > 0 {
			return fmt.Errorf("use either a root directory or --list, not both")
		}
		list, err := batch.LoadPathList(listFile)
		if err != nil {
			return err
		}
		paths = list
	} else {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		if !cmd.Flags().Changed("max-depth") {
			maxDepth = cfg.MaxDepth
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", root, err)
		}
		logInfo("Discovering repositories under %s (max depth %d)", root, maxDepth)
		paths, err = batch.DiscoverRepositories(root, maxDepth)
		if err != nil {
			return err
		}
	}

	if len(paths) == 0 {
		logWarn("No repositories to scan")
	}

	code, err := runRepositories(paths, workers)
	if err != nil {
		return err
	}
	exitCode = code
	return nil
}

// runRepositories scans paths with a pool of poolSize workers, writes the
// report and returns the process exit code.
func runRepositories(paths []string, poolSize int) (int, error) {
	reportFormat, err := batch.ParseFormat(format)
	if err != nil {
		return batch.ExitErrors, err
	}
	sig, _, err := loadSignature()
	if err != nil {
		return batch.ExitErrors, err
	}

	sc := scanner.New(sig)
	pool := batch.NewPool(poolSize)
	if verbose {
		pool.Logger = log.New(os.Stderr, paint(ColorPurple, "[SCAN] "), log.Ltime)
	}

	logInfo("Scanning %d repositories with %d workers", len(paths), max(pool.Workers, 1))
	logInfo("Signature %s: %d packages, indicators %s / %s", sig, len(sig.PackageNames()), sig.Domain, sig.IP)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	done := make(chan bool)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if verbose {
					continue
				}
				fmt.Fprintf(os.Stderr, "\r%s Repositories: %d/%d | Infected: %d | Elapsed: %.1fs    ",
					paint(ColorYellow, "[SCANNING]"),
					pool.Completed(), len(paths), pool.Infected(),
					time.Since(startTime).Seconds())
			}
		}
	}()

	records := pool.Run(ctx, batch.NewQueue(paths), sc.Scan)
	done <- true

	summary := batch.Summarize(records, time.Since(startTime))
	fmt.Fprintf(os.Stderr, "\r%s Scanned %d repositories in %.2fs%s\n",
		paint(ColorGreen, "[COMPLETE]"), summary.Scanned, summary.Duration.Seconds(), strings.Repeat(" ", 20))
	if ctx.Err() != nil {
		logWarn("Scan interrupted; unscanned repositories are reported as errors")
	}

	if verbose {
		logDetails(summary)
	}
	if err := writeReport(summary, reportFormat); err != nil {
		return batch.ExitErrors, err
	}
	return summary.ExitCode(), nil
}

// logDetails lists every finding and lock file warning, which the text
// report condenses.
func logDetails(summary *batch.Summary) {
	for _, rec := range summary.Records {
		for _, res := range rec.Results {
			for _, w := range res.Warnings {
				logWarn("%s", w)
			}
			for _, f := range res.Findings {
				logInfo("%s: %s", f.SourceFile, f)
			}
		}
	}
}

func writeReport(summary *batch.Summary, reportFormat batch.Format) error {
	var w io.Writer = os.Stdout
	color := useColor
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
		color = false
	}

	if err := batch.Write(w, summary, reportFormat, color); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if outputFile != "" {
		logInfo("Report (%s) written to: %s", reportFormat, outputFile)
	}
	return nil
}
