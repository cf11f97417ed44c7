// Package analyst runs the per-group classification collaborator and polices
// its output.
package analyst

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinLopezPastor/qmc-agent/pkg/classify"
	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

const (
	// DefaultAttempts is how many times a group's collaborator call is tried
	// before the group is recorded as Error.
	DefaultAttempts = 3
	// DefaultBackoffBase and DefaultBackoffCap bound the exponential backoff
	// between attempts.
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffCap  = 10 * time.Second
	// DefaultStagger spaces out group launches to avoid bursting the
	// collaborator's rate limit. Load shaping only, not correctness.
	DefaultStagger = 500 * time.Millisecond
)

// Classifier is the external classification collaborator. It receives a group
// name and the simplified rows and returns free-form text expected to contain
// one JSON object matching the report shape.
type Classifier interface {
	Classify(ctx context.Context, group string, rows []models.SimplifiedRow) (string, error)
}

// Logger defines the logging interface for the analyzer.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config tunes retry and pacing behavior. Zero values fall back to defaults;
// a negative Stagger disables launch pacing entirely.
type Config struct {
	Attempts    int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Stagger     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	if c.Stagger == 0 {
		c.Stagger = DefaultStagger
	}
	return c
}

// Analyzer fans group analyses out across goroutines and collects a complete
// report map covering every configured group.
type Analyzer struct {
	llm    Classifier
	cfg    Config
	logger Logger
}

func New(llm Classifier, cfg Config, logger Logger) *Analyzer {
	return &Analyzer{llm: llm, cfg: cfg.withDefaults(), logger: logger}
}

// AnalyzeGroups analyzes every partition concurrently. Launches are staggered
// by group index; one group's failure or panic never aborts its siblings. The
// returned map has an entry for every key in order, and the log lines are
// coherent per group though unordered across groups.
func (a *Analyzer) AnalyzeGroups(ctx context.Context, groups map[string][]models.TaskRow, order []string) (map[string]models.GroupReport, []string) {
	reports := make(map[string]models.GroupReport, len(order))
	var logs []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, alias := range order {
		wg.Add(1)
		go func(idx int, name string, rows []models.TaskRow) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Errorf("Group %s analysis panicked: %v", name, r)
					mu.Lock()
					reports[name] = models.GroupReport{
						Status:  models.StatusError,
						Summary: fmt.Sprintf("LLM Analysis failed: panic: %v", r),
					}
					mu.Unlock()
				}
			}()

			if a.cfg.Stagger > 0 && idx > 0 {
				select {
				case <-time.After(time.Duration(idx) * a.cfg.Stagger):
				case <-ctx.Done():
				}
			}

			report, groupLogs := a.analyzeGroup(ctx, name, rows)
			mu.Lock()
			reports[name] = report
			logs = append(logs, groupLogs...)
			mu.Unlock()
		}(i, alias, groups[alias])
	}
	wg.Wait()
	return reports, logs
}

// analyzeGroup produces one group's verdict: short-circuits for empty and
// all-disabled partitions, otherwise calls the collaborator with bounded
// retries and validates the response shape.
func (a *Analyzer) analyzeGroup(ctx context.Context, name string, rows []models.TaskRow) (models.GroupReport, []string) {
	if len(rows) == 0 {
		// Empty-today is a normal state, not an error; no collaborator call.
		return models.GroupReport{
			Status:  models.StatusPending,
			Summary: "Tasks have not been executed yet.",
		}, []string{fmt.Sprintf("%s: no rows for today, skipping analysis", name)}
	}

	simplified := make([]models.SimplifiedRow, 0, len(rows))
	for _, r := range rows {
		if r.Disabled() {
			continue
		}
		simplified = append(simplified, models.Simplify(r))
	}
	if len(simplified) == 0 {
		return models.GroupReport{
			Status:  models.StatusNoRun,
			Summary: "No enabled tasks found for this process today.",
		}, []string{fmt.Sprintf("%s: all rows disabled, skipping analysis", name)}
	}

	// The deterministic policy verdict is the oracle the collaborator's
	// output is policed against.
	oracle := classify.Classify(rows)

	var logs []string
	var lastErr error
	for attempt := 1; attempt <= a.cfg.Attempts; attempt++ {
		a.logger.Infof("Analyzing group %s (%d tasks, attempt %d/%d)", name, len(simplified), attempt, a.cfg.Attempts)

		raw, err := a.llm.Classify(ctx, name, simplified)
		if err == nil {
			report, perr := ParseReport(raw)
			if perr == nil {
				report = a.police(name, report, oracle, &logs)
				logs = append(logs, fmt.Sprintf("%s: %s - %s", name, report.Status, report.Summary))
				return report, logs
			}
			err = perr
		}
		lastErr = err
		a.logger.Errorf("Group %s analysis attempt %d failed: %v", name, attempt, err)
		logs = append(logs, fmt.Sprintf("%s: attempt %d failed: %v", name, attempt, err))

		if attempt == a.cfg.Attempts {
			break
		}
		select {
		case <-time.After(a.backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = a.cfg.Attempts
		}
	}

	return models.GroupReport{
		Status:  models.StatusError,
		Summary: fmt.Sprintf("LLM Analysis failed: %v", lastErr),
	}, logs
}

// police checks a validated collaborator report against the deterministic
// verdict. A status disagreement means the collaborator hallucinated; the
// deterministic report wins wholesale. When statuses agree the collaborator's
// prose is kept and any task lists or counts it omitted are backfilled.
func (a *Analyzer) police(name string, report, oracle models.GroupReport, logs *[]string) models.GroupReport {
	if report.Status != oracle.Status {
		a.logger.Errorf("Group %s: collaborator verdict %s contradicts computed verdict %s, overriding",
			name, report.Status, oracle.Status)
		*logs = append(*logs, fmt.Sprintf("%s: collaborator verdict %s overridden with %s", name, report.Status, oracle.Status))
		return oracle
	}
	if len(report.FailedTasks) == 0 {
		report.FailedTasks = oracle.FailedTasks
	}
	if len(report.RunningTasks) == 0 {
		report.RunningTasks = oracle.RunningTasks
	}
	if len(report.OtherTasks) == 0 {
		report.OtherTasks = oracle.OtherTasks
	}
	if report.TaskCount == 0 {
		report.TaskCount = oracle.TaskCount
	}
	return report
}

// backoff returns the delay before the next attempt: base doubled per attempt,
// capped.
func (a *Analyzer) backoff(attempt int) time.Duration {
	d := a.cfg.BackoffBase << (attempt - 1)
	if d > a.cfg.BackoffCap {
		return a.cfg.BackoffCap
	}
	return d
}
