package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/KevinLopezPastor/qmc-agent/pkg/combine"
	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
	"github.com/KevinLopezPastor/qmc-agent/pkg/partition"
	"github.com/KevinLopezPastor/qmc-agent/pkg/storage"
)

// Orchestrator owns the run state and sequences the stage graph. The state is
// exclusively owned for the duration of one run; stages return partial
// updates and the reducer merges them.
type Orchestrator struct {
	cfg        Config
	extractor  PageExtractor
	analyzer   GroupAnalyzer
	summarizer combine.Summarizer // optional
	renderer   Renderer
	store      storage.Store // optional
	logger     Logger

	mu    sync.Mutex
	state *models.RunState
}

func New(cfg Config, extractor PageExtractor, analyzer GroupAnalyzer, summarizer combine.Summarizer, renderer Renderer, store storage.Store, logger Logger) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Orchestrator{
		cfg:        cfg,
		extractor:  extractor,
		analyzer:   analyzer,
		summarizer: summarizer,
		renderer:   renderer,
		store:      store,
		logger:     logger,
	}
}

// Run executes the unified dual-source workflow. The returned state always
// carries whatever the run produced, including on failure.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunState, error) {
	o.state = models.NewRunState(o.cfg.MaxRetries)
	runID := uuid.NewString()
	o.recordStart(runID)

	o.apply(StageResult{Stage: models.StageAuthenticating, Logs: []string{"run started"}})

	// The two chains run as independent cooperative tasks; a zero-value
	// errgroup never cancels the sibling when one chain dies.
	var g errgroup.Group
	for _, src := range []models.Source{models.SourceQMC, models.SourceNPrinting} {
		src := src
		g.Go(func() error {
			o.runChain(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	// Synchronization barrier: a chain that terminated in error contributes
	// an empty report map rather than blocking the join.
	qmc := o.snapshotSource(models.SourceQMC)
	np := o.snapshotSource(models.SourceNPrinting)
	o.apply(StageResult{
		Stage: models.StageSynchronizing,
		Logs: []string{fmt.Sprintf("sync: qmc=%d groups, nprinting=%d groups",
			len(qmc.Reports), len(np.Reports))},
	})

	o.combineAndReport(ctx, qmc.Reports, np.Reports)
	return o.finish(runID)
}

// RunLegacy executes the single-source variant: the QMC chain followed
// directly by combine/report, without the parallel start or barrier.
func (o *Orchestrator) RunLegacy(ctx context.Context) (*models.RunState, error) {
	o.state = models.NewRunState(o.cfg.MaxRetries)
	runID := uuid.NewString()
	o.recordStart(runID)

	o.apply(StageResult{Stage: models.StageAuthenticating, Logs: []string{"run started (legacy single-source)"}})
	o.runChain(ctx, models.SourceQMC)

	qmc := o.snapshotSource(models.SourceQMC)
	o.combineAndReport(ctx, qmc.Reports, nil)
	return o.finish(runID)
}

// runChain drives one source's login -> extract -> classify sub-chain.
// Login failures re-enter the login stage until the retry budget is spent;
// extraction failures terminate the chain; classification failures are
// absorbed per group by the analyzer and never escalate here.
func (o *Orchestrator) runChain(ctx context.Context, src models.Source) {
	session, ok := o.login(ctx, src)
	if !ok {
		return
	}

	o.apply(StageResult{Source: src, Stage: models.StageExtracting})
	ext, err := o.extractor.Extract(ctx, src, session)
	if err != nil {
		o.logger.Errorf("%s: extraction failed: %v", src, err)
		o.apply(StageResult{
			Source:       src,
			ClearSession: true,
			SourceError:  fmt.Sprintf("%s extraction failed: %v", src, err),
			Logs:         []string{fmt.Sprintf("%s: extraction error: %v", src, err)},
			Screenshots:  ext.Screenshots,
		})
		return
	}
	o.apply(StageResult{
		Source: src,
		Rows:   ext.Rows,
		Logs: []string{fmt.Sprintf("%s: extracted %d rows (pagination clicks: %d)",
			src, len(ext.Rows), ext.PaginationClicks)},
	})

	o.apply(StageResult{Source: src, Stage: models.StageClassifying})
	groups := partition.Partition(ext.Rows, o.cfg.Groups[src])
	reports, logs := o.analyzer.AnalyzeGroups(ctx, groups, partition.Aliases(o.cfg.Groups[src]))
	o.apply(StageResult{Source: src, Reports: reports, Logs: logs})
}

// login re-enters the login stage until a session is obtained or the retry
// budget is spent. A collaborator that cannot start at all fails immediately.
func (o *Orchestrator) login(ctx context.Context, src models.Source) (*models.Session, bool) {
	for {
		attempt := o.snapshotSource(src).RetryCount
		o.logger.Infof("%s: login attempt %d/%d", src, attempt+1, o.cfg.MaxRetries)

		res, err := o.extractor.Login(ctx, src)
		if err == nil && res.Session != nil {
			o.apply(StageResult{
				Source:  src,
				Session: res.Session,
				Logs:    []string{fmt.Sprintf("%s: login succeeded", src)},
			})
			return res.Session, true
		}
		if err == nil {
			err = errors.New("no session obtained")
		}

		fatal := errors.Is(err, ErrCollaboratorUnavailable)
		next := attempt + 1
		o.apply(StageResult{
			Source:      src,
			RetryCount:  &next,
			Logs:        []string{fmt.Sprintf("%s: login failed: %v", src, err)},
			Screenshots: res.Screenshots,
		})

		if fatal || next >= o.cfg.MaxRetries {
			msg := fmt.Sprintf("%s login failed after %d attempt(s): %v", src, next, err)
			if fatal {
				msg = fmt.Sprintf("%s login failed, collaborator unavailable: %v", src, err)
			}
			o.logger.Errorf("%s", msg)
			o.apply(StageResult{Source: src, SourceError: msg})
			return nil, false
		}
	}
}

// combineAndReport runs the strictly linear tail of the graph. Rendering is
// attempted even when a chain failed, so partial data still reaches the
// operator before the run reports failure.
func (o *Orchestrator) combineAndReport(ctx context.Context, qmc, np map[string]models.GroupReport) {
	o.apply(StageResult{Stage: models.StageCombining})
	report := combine.Combine(qmc, np)
	report = combine.WithSummary(ctx, report, o.summarizer, o.logger)
	o.apply(StageResult{
		Combined: &report,
		Logs: []string{fmt.Sprintf("combined: qmc(%d) + nprinting(%d) = %s",
			report.QMC.TotalProcesses, report.NPrinting.TotalProcesses, report.OverallStatus)},
	})

	o.apply(StageResult{Stage: models.StageReporting})
	path, err := o.renderer.Render(ctx, RenderRequest{
		QMCReports:       qmc,
		NPrintingReports: np,
		Combined:         report,
		OutputPath:       o.outputPath(),
	})
	if err != nil {
		o.logger.Errorf("Report generation failed: %v", err)
		o.apply(StageResult{
			RunError: fmt.Sprintf("report generation failed: %v", err),
			Logs:     []string{fmt.Sprintf("report error: %v", err)},
		})
		return
	}
	o.apply(StageResult{
		ReportImagePath: path,
		Logs:            []string{fmt.Sprintf("report generated: %s", path)},
	})
}

// finish settles the terminal stage, records the outcome and returns it.
// The error terminal appends a final failure log line; resource cleanup is
// each stage's own responsibility.
func (o *Orchestrator) finish(runID string) (*models.RunState, error) {
	o.mu.Lock()
	errMsg := o.state.Error
	o.mu.Unlock()

	if errMsg != "" {
		o.apply(StageResult{
			Stage: models.StageFailed,
			Logs:  []string{fmt.Sprintf("WORKFLOW FAILED: %s", errMsg)},
		})
	} else {
		o.apply(StageResult{Stage: models.StageDone, Logs: []string{"run finished"}})
	}

	o.recordFinish(runID)
	if errMsg != "" {
		return o.state, errors.New(errMsg)
	}
	return o.state, nil
}

func (o *Orchestrator) outputPath() string {
	now := time.Now()
	return fmt.Sprintf("%s/%s/unified_report_%s.png",
		o.cfg.OutputDir, now.Format("02_01_2006"), now.Format("20060102_150405"))
}

// recordStart persists the run row when a store is configured. Persistence
// failures are logged, never fatal.
func (o *Orchestrator) recordStart(runID string) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveRun(models.Run{
		ID:            runID,
		StartedAt:     time.Now(),
		OverallStatus: models.StatusPending,
	}); err != nil {
		o.logger.Errorf("Failed to record run %s: %v", runID, err)
	}
}

func (o *Orchestrator) recordFinish(runID string) {
	if o.store == nil {
		return
	}
	s := o.state
	overall := models.StatusPending
	var combinedJSON []byte
	if s.Combined != nil {
		overall = s.Combined.OverallStatus
		if data, err := json.Marshal(s.Combined); err == nil {
			combinedJSON = data
		}
	}
	if s.Error != "" && overall != models.StatusFailed {
		overall = models.StatusError
	}
	if err := o.store.FinishRun(runID, overall, s.Error, s.ReportImagePath, combinedJSON); err != nil {
		o.logger.Errorf("Failed to finish run %s: %v", runID, err)
		return
	}
	for src, reports := range map[models.Source]map[string]models.GroupReport{
		models.SourceQMC:       s.QMC.Reports,
		models.SourceNPrinting: s.NPrinting.Reports,
	} {
		for name, r := range reports {
			if err := o.store.SaveGroupReport(models.RunGroupReport{
				RunID:       runID,
				Source:      src,
				GroupName:   name,
				Status:      r.Status,
				Summary:     r.Summary,
				FailedTasks: r.FailedTasks,
				TaskCount:   r.TaskCount,
			}); err != nil {
				o.logger.Errorf("Failed to record group report %s/%s: %v", src, name, err)
			}
		}
	}
}
