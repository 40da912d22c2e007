package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/headers-cz/sec-phantomraven-checker/signature"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s\n", paint(ColorBold+ColorCyan, "PhantomRaven Checker"))
		fmt.Printf("  Version:    %s\n", Version)
		fmt.Printf("  Build Date: %s\n", BuildDate)
		fmt.Printf("  Signature:  %s\n", signature.Default())
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
