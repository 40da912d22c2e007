package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/headers-cz/sec-phantomraven-checker/batch"
	"github.com/headers-cz/sec-phantomraven-checker/config"
	"github.com/headers-cz/sec-phantomraven-checker/signature"
)

var (
	// Global flags
	workers        int
	format         string
	outputFile     string
	signaturesFile string
	packagesFile   string
	noColor        bool
	verbose        bool

	// Environment and .env defaults for the flags, loaded in init.
	cfg *config.Config

	// Set by commands that produce a scan verdict.
	exitCode = batch.ExitClean

	// Version info
	Version   = "1.0.0"
	BuildDate = "2025-10-30"
)

var rootCmd = &cobra.Command{
	Use:   "phantomraven-checker",
	Short: "PhantomRaven npm supply-chain campaign checker",
	Long: fmt.Sprintf(`%s%sPHANTOMRAVEN CHECKER%s - npm supply-chain indicator scanner

Detects indicators of the PhantomRaven npm campaign in package.json manifests
and package-lock.json, yarn.lock and pnpm-lock.yaml lock files:
  • Known malicious package names
  • Remote dynamic dependencies (http/https URLs outside the npm registry)
  • Dependencies or resolved URLs on packages.storeartifact.com / 54.173.15.59
  • Git dependencies on untrusted hosts
  • Suspicious preinstall/postinstall/install scripts

Exit status: 0 clean, 1 infected, 2 errors without infections.

Example usage:
  phantomraven-checker scan                        # Scan current directory
  phantomraven-checker scan -p /path/to/project    # Scan specific project
  phantomraven-checker batch ~/src                 # Discover and scan git repositories
  phantomraven-checker batch --list repos.txt -w 8 # Scan a list of repositories
  phantomraven-checker batch ~/src -o json -f report.json
`, ColorBold, ColorCyan, ColorReset),
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			useColor = false
		}
		_, err := batch.ParseFormat(format)
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logError("%v", err)
		os.Exit(batch.ExitErrors)
	}
	os.Exit(exitCode)
}

func init() {
	cfg = config.Load()

	// Global persistent flags
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", cfg.Workers, "Number of concurrent repository workers")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "o", cfg.Format, "Report format: text, json or csv")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "f", "", "Write the report to a file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&signaturesFile, "signatures", cfg.SignaturesFile, "Signature YAML file (default: built-in)")
	rootCmd.PersistentFlags().StringVar(&packagesFile, "packages", cfg.PackagesFile, "Extra IOC package list (Wiz CSV or one name per line)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", cfg.NoColor, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// loadSignature returns the active signature and the extra package list it
// was extended with, if any.
func loadSignature() (*signature.Signature, signature.PackageList, error) {
	sig := signature.Default()
	if signaturesFile != "" {
		loaded, err := signature.Load(signaturesFile)
		if err != nil {
			return nil, nil, err
		}
		sig = loaded
	}

	if packagesFile == "" {
		return sig, nil, nil
	}
	list, err := signature.LoadPackageList(packagesFile)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		logInfo("Loaded %d packages from %s", len(list), packagesFile)
	}
	return sig.WithPackages(list.Names()...), list, nil
}
