package batch

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/headers-cz/sec-phantomraven-checker/scanner"
)

// DefaultWorkers is used when no worker count is configured.
const DefaultWorkers = 4

// ScanFunc scans one repository root. scanner.Scanner.Scan satisfies it.
type ScanFunc func(root string) []scanner.ProjectResult

// ScanRecord is the outcome for one repository. A repository with several
// manifests collapses into a single record.
type ScanRecord struct {
	Index          int
	RepositoryPath string
	Results        []scanner.ProjectResult
	Status         scanner.Status
	ErrorDetail    string
	Elapsed        time.Duration
}

// Findings returns every finding across the record's results.
func (r ScanRecord) Findings() []scanner.Finding {
	var findings []scanner.Finding
	for _, res := range r.Results {
		findings = append(findings, res.Findings...)
	}
	return findings
}

// Pool runs a fixed number of workers over a Queue.
type Pool struct {
	Workers int
	// Logger receives one line per finished repository when set.
	Logger *log.Logger

	completed atomic.Int64
	infected  atomic.Int64
}

// NewPool creates a pool with the given worker count.
func NewPool(workers int) *Pool {
	return &Pool{Workers: workers}
}

// Completed returns how many repositories have finished in the current run.
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// Infected returns how many finished repositories were infected.
func (p *Pool) Infected() int64 {
	return p.infected.Load()
}

// Run drains queue with p.Workers goroutines and returns exactly one record
// per queued repository, ordered by input index. It returns only after every
// worker has exited. Cancelling ctx stops dispatch; repositories already
// being scanned finish, the rest are reported as errors.
func (p *Pool) Run(ctx context.Context, queue *Queue, scan ScanFunc) []ScanRecord {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	p.completed.Store(0)
	p.infected.Store(0)

	out := make(chan ScanRecord, queue.Len())

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					queue.Close()
					return
				}
				item, ok := queue.Next()
				if !ok {
					return
				}
				out <- p.scanOne(item, scan)
			}
		}()
	}

	wg.Wait()
	close(out)

	records := make([]ScanRecord, 0, queue.Len())
	for rec := range out {
		records = append(records, rec)
	}
	for _, item := range queue.Close() {
		records = append(records, ScanRecord{
			Index:          item.Index,
			RepositoryPath: item.Path,
			Status:         scanner.StatusError,
			ErrorDetail:    "scan cancelled",
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Index < records[j].Index
	})
	return records
}

// scanOne never panics: a fault inside scan becomes an error record.
func (p *Pool) scanOne(item Item, scan ScanFunc) (rec ScanRecord) {
	start := time.Now()
	rec = ScanRecord{Index: item.Index, RepositoryPath: item.Path}

	defer func() {
		if r := recover(); r != nil {
			rec.Results = nil
			rec.Status = scanner.StatusError
			rec.ErrorDetail = fmt.Sprintf("worker fault: %v", r)
		}
		rec.Elapsed = time.Since(start)

		p.completed.Add(1)
		if rec.Status == scanner.StatusInfected {
			p.infected.Add(1)
		}
		if p.Logger != nil {
			p.Logger.Printf("%s: %s (%d findings, %s)", rec.RepositoryPath, rec.Status,
				len(rec.Findings()), rec.Elapsed.Round(time.Millisecond))
		}
	}()

	rec.Results = scan(item.Path)
	rec.Status, rec.ErrorDetail = collapse(rec.Results)
	return rec
}

// collapse folds per-manifest results into one repository status: infected
// wins over error, error wins over clean. No results means clean.
func collapse(results []scanner.ProjectResult) (scanner.Status, string) {
	status := scanner.StatusClean
	var details []string
	for _, res := range results {
		switch res.Status {
		case scanner.StatusInfected:
			status = scanner.StatusInfected
		case scanner.StatusError:
			if status != scanner.StatusInfected {
				status = scanner.StatusError
			}
			if res.ErrorDetail != "" {
				details = append(details, res.ErrorDetail)
			}
		}
	}
	if status != scanner.StatusError {
		return status, ""
	}
	return status, strings.Join(details, "; ")
}
