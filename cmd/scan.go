package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var scanPath string

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan one project for PhantomRaven indicators",
	Long: `Scan a single project directory: every package.json below it (outside
node_modules and build caches) together with the lock files next to it.

Examples:
  phantomraven-checker scan                      # Scan current directory
  phantomraven-checker scan -p /path/to/project  # Scan specific path
  phantomraven-checker scan . -o json            # JSON report on stdout`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPath, "path", "p", "", "Path to scan (default: current directory)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		scanPath = args[0]
	}
	if scanPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		scanPath = wd
	}

	abs, err := filepath.Abs(scanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", scanPath, err)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", abs)
	}

	// Single-project mode is a batch of one on a single worker.
	code, err := runRepositories([]string{abs}, 1)
	if err != nil {
		return err
	}
	exitCode = code
	return nil
}
