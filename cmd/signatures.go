package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "Print the loaded signature set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, _, err := loadSignature()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", paint(ColorBold+ColorCyan, "Signature "+sig.String()))
		fmt.Fprintf(out, "  Domain: %s\n", sig.Domain)
		fmt.Fprintf(out, "  IP:     %s\n", sig.IP)

		names := sig.PackageNames()
		fmt.Fprintf(out, "\n%s (%d)\n", paint(ColorPurple, "Packages"), len(names))
		for _, name := range names {
			fmt.Fprintf(out, "  • %s\n", name)
		}

		patterns := sig.ScriptPatterns()
		fmt.Fprintf(out, "\n%s (%d)\n", paint(ColorPurple, "Install script patterns"), len(patterns))
		for _, re := range patterns {
			fmt.Fprintf(out, "  • %s\n", re)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signaturesCmd)
}
