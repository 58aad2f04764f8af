package bulk

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Entry statuses.
const (
	StatusProcessed = "processed"
	StatusCached    = "cached"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Report summarizes one batch run. It is safe for concurrent use while
// the run is in progress.
type Report struct {
	mu sync.Mutex

	Attempted int     `json:"attempted"`
	Processed int     `json:"processed"`
	Cached    int     `json:"cached"`
	Skipped   int     `json:"skipped"`
	Failed    int     `json:"failed"`
	Entries   []Entry `json:"entries"`
}

// Entry is the outcome for one page.
type Entry struct {
	Source  string `json:"source"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Changes int    `json:"changes,omitempty"`
	Dropped int    `json:"dropped,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r *Report) add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Attempted++
	switch entry.Status {
	case StatusProcessed:
		r.Processed++
	case StatusCached:
		r.Cached++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Entries = append(r.Entries, entry)
}

// sort orders entries by source so concurrent runs report identically.
func (r *Report) sort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.Entries, func(i, j int) bool {
		return r.Entries[i].Source < r.Entries[j].Source
	})
}

// Errors returns the failed entries.
func (r *Report) Errors() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []Entry
	for _, e := range r.Entries {
		if e.Status == StatusFailed {
			failed = append(failed, e)
		}
	}
	return failed
}

// FormatReport formats a Report for terminal output.
func FormatReport(report *Report) string {
	var builder strings.Builder

	builder.WriteString("\nBatch Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Attempted: %d | Processed: %d | Cached: %d | Skipped: %d | Failed: %d\n",
		report.Attempted, report.Processed, report.Cached, report.Skipped, report.Failed))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	for _, entry := range report.Entries {
		var status string
		switch entry.Status {
		case StatusProcessed:
			status = "[OK]"
		case StatusCached:
			status = "[CACHE]"
		case StatusSkipped:
			status = "[SKIP]"
		case StatusFailed:
			status = "[FAIL]"
		default:
			status = entry.Status
		}

		line := fmt.Sprintf("  %-8s %-40s", status, entry.Source)
		if entry.Version != "" {
			line += fmt.Sprintf(" %s", entry.Version)
		}
		if entry.Changes > 0 {
			line += fmt.Sprintf(" (%d changes, %d dropped)", entry.Changes, entry.Dropped)
		}
		if entry.Error != "" {
			line += fmt.Sprintf(" error: %s", entry.Error)
		}
		builder.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	return builder.String()
}

// FormatReportJSON formats a Report as JSON.
func FormatReportJSON(report *Report) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
