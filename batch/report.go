package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/headers-cz/sec-phantomraven-checker/scanner"
)

// Format selects a report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or csv)", name)
	}
}

// maxTextFindings caps the findings listed per repository in text reports.
const maxTextFindings = 3

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

// Write renders s to w in the given format. color only affects text output.
func Write(w io.Writer, s *Summary, format Format, color bool) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, s)
	case FormatCSV:
		return WriteCSV(w, s)
	default:
		return WriteText(w, s, color)
	}
}

// WriteText writes a human readable report: one line per infected or failed
// repository. The full finding list is only logged in verbose mode.
func WriteText(w io.Writer, s *Summary, color bool) error {
	paint := func(c, text string) string {
		if !color {
			return text
		}
		return c + text + colorReset
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d repositories | clean %d | infected %d | errors %d | %.2fs\n",
		paint(colorBold, "PhantomRaven scan:"),
		s.Total, s.Clean, s.Infected, s.Errors, s.Duration.Seconds())

	for _, e := range s.InfectedList {
		fmt.Fprintf(&b, "%s %s: %s\n", paint(colorRed, "[INFECTED]"), e.Path, condense(e.Findings))
	}
	for _, e := range s.ErrorList {
		fmt.Fprintf(&b, "%s %s: %s\n", paint(colorYellow, "[ERROR]"), e.Path, e.Error)
	}
	if s.Infected == 0 && s.Errors == 0 {
		fmt.Fprintf(&b, "%s\n", paint(colorGreen, "No PhantomRaven indicators found."))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// condense joins the first maxTextFindings findings into one line.
func condense(findings []scanner.Finding) string {
	shown := findings
	if len(shown) > maxTextFindings {
		shown = shown[:maxTextFindings]
	}
	parts := make([]string, 0, len(shown)+1)
	for _, f := range shown {
		parts = append(parts, f.String())
	}
	line := strings.Join(parts, "; ")
	if extra := len(findings) - len(shown); extra > 0 {
		line += fmt.Sprintf(" (+%d more)", extra)
	}
	return line
}

type jsonReport struct {
	ScanID          string  `json:"scan_id"`
	ScanDate        string  `json:"scan_date"`
	Total           int     `json:"total"`
	Scanned         int     `json:"scanned"`
	Clean           int     `json:"clean"`
	Infected        int     `json:"infected"`
	Errors          int     `json:"errors"`
	DurationSeconds int64   `json:"duration_seconds"`
	InfectedRepos   []Entry `json:"infected_repositories"`
	ErrorRepos      []Entry `json:"error_repositories"`
}

// WriteJSON writes the summary as an indented JSON document.
func WriteJSON(w io.Writer, s *Summary) error {
	report := jsonReport{
		ScanID:          s.ScanID,
		ScanDate:        s.ScanDate.Format(time.RFC3339),
		Total:           s.Total,
		Scanned:         s.Scanned,
		Clean:           s.Clean,
		Infected:        s.Infected,
		Errors:          s.Errors,
		DurationSeconds: int64(math.Round(s.Duration.Seconds())),
		InfectedRepos:   make([]Entry, 0, len(s.InfectedList)),
		ErrorRepos:      make([]Entry, 0, len(s.ErrorList)),
	}
	report.InfectedRepos = append(report.InfectedRepos, s.InfectedList...)
	report.ErrorRepos = append(report.ErrorRepos, s.ErrorList...)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// WriteCSV writes one row per scanned repository with every field quoted.
func WriteCSV(w io.Writer, s *Summary) error {
	var b strings.Builder
	b.WriteString(csvRow("Repository", "Status", "Findings"))
	for _, rec := range s.Records {
		var detail string
		switch rec.Status {
		case scanner.StatusInfected:
			var parts []string
			for _, f := range rec.Findings() {
				parts = append(parts, f.String())
			}
			detail = strings.Join(parts, "; ")
		case scanner.StatusError:
			detail = rec.ErrorDetail
		}
		b.WriteString(csvRow(rec.RepositoryPath, string(rec.Status), detail))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func csvRow(fields ...string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",") + "\n"
}
