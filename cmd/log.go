package cmd

import (
	"fmt"
	"os"
)

// ANSI colors
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

var useColor = true

func paint(color, text string) string {
	if !useColor {
		return text
	}
	return color + text + ColorReset
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", paint(ColorBlue, "[INFO]"), fmt.Sprintf(format, args...))
}

func logWarn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", paint(ColorYellow, "[WARN]"), fmt.Sprintf(format, args...))
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", paint(ColorRed, "[ERROR]"), fmt.Sprintf(format, args...))
}
