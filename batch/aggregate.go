package batch

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/headers-cz/sec-phantomraven-checker/scanner"
)

// Exit codes returned by Summary.ExitCode.
const (
	ExitClean    = 0
	ExitInfected = 1
	ExitErrors   = 2
)

// Entry is one line of the infected or error list.
type Entry struct {
	Path     string            `json:"path"`
	Findings []scanner.Finding `json:"findings,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Summary is the aggregated view of a batch run.
type Summary struct {
	ScanID       string
	ScanDate     time.Time
	Total        int
	Scanned      int
	Clean        int
	Infected     int
	Errors       int
	InfectedList []Entry
	ErrorList    []Entry
	Records      []ScanRecord
	Duration     time.Duration
}

// Summarize folds records into a Summary. The result depends only on the
// records' contents, never on the order workers finished in.
func Summarize(records []ScanRecord, duration time.Duration) *Summary {
	sorted := append([]ScanRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	s := &Summary{
		ScanID:   uuid.NewString(),
		ScanDate: time.Now(),
		Total:    len(sorted),
		Records:  sorted,
		Duration: duration,
	}
	for _, rec := range sorted {
		s.Scanned++
		switch rec.Status {
		case scanner.StatusInfected:
			s.Infected++
			s.InfectedList = append(s.InfectedList, Entry{
				Path:     rec.RepositoryPath,
				Findings: rec.Findings(),
			})
		case scanner.StatusError:
			s.Errors++
			s.ErrorList = append(s.ErrorList, Entry{
				Path:  rec.RepositoryPath,
				Error: rec.ErrorDetail,
			})
		default:
			s.Clean++
		}
	}
	return s
}

// ExitCode maps the summary to a process exit status. Infected takes
// precedence over errors.
func (s *Summary) ExitCode() int {
	switch {
	case s.Infected > 0:
		return ExitInfected
	case s.Errors > 0:
		return ExitErrors
	default:
		return ExitClean
	}
}
