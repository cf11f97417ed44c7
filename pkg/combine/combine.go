// Package combine merges the two per-source report maps into one verdict.
package combine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

// Summarizer is the optional natural-language collaborator for the executive
// summary. Any failure falls back to the deterministic template.
type Summarizer interface {
	Summarize(ctx context.Context, report models.CombinedReport) (string, error)
}

// Logger defines the logging interface for the combiner.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Combine merges the per-source report maps. Either map may be empty when
// that source produced nothing; absence of data is reported as Pending, never
// as success or failure. The summary is the deterministic fallback; callers
// wanting collaborator prose use WithSummary afterwards.
func Combine(qmc, nprinting map[string]models.GroupReport) models.CombinedReport {
	report := models.CombinedReport{
		OverallStatus: overallStatus(qmc, nprinting),
		QMC:           summarize(qmc),
		NPrinting:     summarize(nprinting),
	}
	report.Summary = FallbackSummary(report)
	return report
}

// WithSummary asks the collaborator for an executive summary and keeps the
// deterministic one on any failure. Summary failures never surface as run
// errors.
func WithSummary(ctx context.Context, report models.CombinedReport, s Summarizer, logger Logger) models.CombinedReport {
	if s == nil {
		return report
	}
	text, err := s.Summarize(ctx, report)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			logger.Errorf("Summary collaborator failed, keeping fallback: %v", err)
		}
		return report
	}
	report.Summary = strings.TrimSpace(text)
	return report
}

// overallStatus applies the cross-source precedence over every status present
// in either map. Bookkeeping statuses carry no signal and are excluded;
// Error is shown to the end user as Failed.
func overallStatus(qmc, nprinting map[string]models.GroupReport) models.Status {
	if len(qmc) == 0 && len(nprinting) == 0 {
		return models.StatusPending
	}

	var hasFailed, hasError, hasRunning, hasPending, hasOther bool
	total := 0
	success := 0
	collect := func(reports map[string]models.GroupReport) {
		for _, r := range reports {
			switch r.Status {
			case models.StatusNoData, models.StatusNoRun:
				continue
			case models.StatusFailed:
				hasFailed = true
			case models.StatusError:
				hasError = true
			case models.StatusRunning:
				hasRunning = true
			case models.StatusPending:
				hasPending = true
			case models.StatusSuccess:
				success++
			default:
				hasOther = true
			}
			total++
		}
	}
	collect(qmc)
	collect(nprinting)

	switch {
	case hasFailed, hasError:
		return models.StatusFailed
	case hasRunning:
		return models.StatusRunning
	case hasPending:
		return models.StatusPending
	case total > 0 && !hasOther && success == total:
		return models.StatusSuccess
	default:
		// Mixed or unrecognized residue is reported as Pending, never as an
		// unlabeled bucket.
		return models.StatusPending
	}
}

// summarize builds the per-source aggregate. Unrecognized statuses count
// toward the No Run bucket, matching the console display convention.
func summarize(reports map[string]models.GroupReport) models.SourceSummary {
	counts := map[models.Status]int{
		models.StatusSuccess: 0,
		models.StatusRunning: 0,
		models.StatusFailed:  0,
		models.StatusPending: 0,
		models.StatusNoRun:   0,
	}
	for _, r := range reports {
		if _, ok := counts[r.Status]; ok {
			counts[r.Status]++
		} else {
			counts[models.StatusNoRun]++
		}
	}
	return models.SourceSummary{
		TotalProcesses: len(reports),
		StatusCounts:   counts,
		Processes:      reports,
	}
}

// FallbackSummary builds the deterministic executive summary from the counts.
// It never invokes any external service.
func FallbackSummary(report models.CombinedReport) string {
	totalQMC := report.QMC.TotalProcesses
	totalNP := report.NPrinting.TotalProcesses
	if totalQMC == 0 && totalNP == 0 {
		return "Tasks have not been executed yet."
	}

	switch report.OverallStatus {
	case models.StatusSuccess:
		return fmt.Sprintf("All %d processes completed successfully.", totalQMC+totalNP)
	case models.StatusFailed:
		failed := failingNames(report.QMC.Processes)
		failed = append(failed, failingNames(report.NPrinting.Processes)...)
		shown := failed
		suffix := ""
		if len(shown) > 3 {
			shown = shown[:3]
			suffix = "..."
		}
		return fmt.Sprintf("CRITICAL: %d process(es) failed: %s%s",
			len(failed), strings.Join(shown, ", "), suffix)
	case models.StatusRunning:
		return fmt.Sprintf("Processes are still running. QMC: %d, NPrinting: %d.", totalQMC, totalNP)
	default:
		return fmt.Sprintf("Status: %s. QMC: %d processes, NPrinting: %d processes.",
			report.OverallStatus, totalQMC, totalNP)
	}
}

// failingNames lists groups whose verdict reads as failure, in sorted order
// so the fallback text is deterministic.
func failingNames(reports map[string]models.GroupReport) []string {
	var names []string
	for name, r := range reports {
		if r.Status == models.StatusFailed || r.Status == models.StatusError {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
