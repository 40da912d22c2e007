package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/headers-cz/sec-phantomraven-checker/batch"
	"github.com/headers-cz/sec-phantomraven-checker/signature"
)

var checkCmd = &cobra.Command{
	Use:   "check <package[@version]>",
	Short: "Check if a specific npm package is a known PhantomRaven package",
	Long: `Check a package name against the loaded signature, without touching the
network. With --packages, versions listed in the IOC file are compared too.

Examples:
  phantomraven-checker check unused-imports
  phantomraven-checker check @scope/pkg@1.2.3 --packages iocs.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	sig, list, err := loadSignature()
	if err != nil {
		return err
	}

	pkgName, pkgVersion := signature.SplitPackageSpec(args[0])
	if pkgName == "" {
		return fmt.Errorf("invalid package name %q", args[0])
	}

	out := cmd.OutOrStdout()
	if !sig.IsMaliciousPackage(pkgName) {
		fmt.Fprintf(out, "%s\n", paint(ColorGreen, fmt.Sprintf("SAFE: %s is NOT in the %s package list", pkgName, sig)))
		return nil
	}

	exitCode = batch.ExitInfected
	versions := list[pkgName]
	switch {
	case len(versions) == 0:
		fmt.Fprintf(out, "%s\n", paint(ColorBold+ColorRed, fmt.Sprintf("MALICIOUS: %s is a known %s package (all versions)", pkgName, sig.Name)))
		fmt.Fprintln(out, "\nRemove it and rotate any credentials available to the install environment.")
	case pkgVersion == "":
		fmt.Fprintf(out, "%s\n", paint(ColorBold+ColorYellow, fmt.Sprintf("WARNING: %s has infected versions!", pkgName)))
		fmt.Fprintf(out, "\nInfected versions:\n")
		for _, v := range versions {
			fmt.Fprintf(out, "  • %s@%s\n", pkgName, v)
		}
	case slices.Contains(versions, pkgVersion):
		fmt.Fprintf(out, "%s\n", paint(ColorBold+ColorRed, fmt.Sprintf("INFECTED: %s@%s is in the IOC list!", pkgName, pkgVersion)))
		fmt.Fprintln(out, "\nDO NOT install or use this version.")
	default:
		exitCode = batch.ExitClean
		fmt.Fprintf(out, "%s\n", paint(ColorGreen, fmt.Sprintf("SAFE: %s@%s is NOT in the IOC list", pkgName, pkgVersion)))
		fmt.Fprintf(out, "\nHowever, note that %s has infected versions: %v\n", pkgName, versions)
	}
	return nil
}
