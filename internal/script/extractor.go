package script

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/KevinLopezPastor/qmc-agent/internal/config"
	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
	"github.com/KevinLopezPastor/qmc-agent/pkg/workflow"
)

// Script names, one pair per console.
const (
	qmcLoginScript         = "qmc_login.py"
	qmcExtractScript       = "qmc_extract.py"
	nprintingLoginScript   = "nprinting_login.py"
	nprintingExtractScript = "nprinting_extract.py"
)

// Extractor adapts the worker scripts to the workflow.PageExtractor
// interface. One Extractor serves both consoles; the source argument selects
// the script and configuration.
type Extractor struct {
	runner *Runner
	cfg    *config.Config
	logger Logger
}

// NewExtractor builds a script-backed page extractor.
func NewExtractor(runner *Runner, cfg *config.Config, logger Logger) *Extractor {
	return &Extractor{runner: runner, cfg: cfg, logger: logger}
}

// loginPayload is the input contract of the login scripts.
type loginPayload struct {
	URL       string            `json:"url"`
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	Selectors map[string]string `json:"selectors"`
	StatePath string            `json:"state_path"`
	Headless  bool              `json:"headless"`
	TimeoutMS int               `json:"timeout_ms"`
}

type loginOutput struct {
	envelope
	Cookies     map[string]string `json:"cookies"`
	StatePath   string            `json:"state_path"`
	Screenshots []string          `json:"screenshots"`
}

// Login authenticates against one console via its login script.
func (e *Extractor) Login(ctx context.Context, src models.Source) (workflow.LoginResult, error) {
	sc := e.sourceConfig(src)
	payload := loginPayload{
		URL:       sc.URL,
		Username:  sc.Username,
		Password:  sc.Password,
		Selectors: sc.Selectors,
		StatePath: sc.StatePath,
		Headless:  e.cfg.Headless,
		TimeoutMS: e.cfg.TimeoutMS,
	}

	e.logger.Infof("Logging in to %s console at %s", src, sc.URL)

	var out loginOutput
	err := e.runner.Run(ctx, loginScript(src), payload, &out)
	res := workflow.LoginResult{Screenshots: out.Screenshots}
	if err != nil {
		e.logger.Errorf("Login to %s console failed: %v", src, err)
		return res, err
	}
	e.logger.Infof("Login to %s console succeeded", src)
	statePath := out.StatePath
	if statePath == "" {
		statePath = sc.StatePath
	}
	res.Session = &models.Session{Cookies: out.Cookies, StatePath: statePath}
	return res, nil
}

// extractPayload is the input contract of the extraction scripts.
type extractPayload struct {
	URL             string            `json:"url"`
	Selectors       map[string]string `json:"selectors"`
	StatePath       string            `json:"state_path"`
	Cookies         map[string]string `json:"cookies,omitempty"`
	Headless        bool              `json:"headless"`
	TimeoutMS       int               `json:"timeout_ms"`
	PaginationLimit int               `json:"pagination_limit"`
}

type extractOutput struct {
	envelope
	Rows             []rawRow `json:"rows"`
	PaginationClicks int      `json:"pagination_clicks"`
	Screenshots      []string `json:"screenshots"`
}

// Extract scrapes the task table of one console via its extraction script.
func (e *Extractor) Extract(ctx context.Context, src models.Source, session *models.Session) (workflow.ExtractResult, error) {
	sc := e.sourceConfig(src)
	payload := extractPayload{
		URL:             sc.URL,
		Selectors:       sc.Selectors,
		StatePath:       sc.StatePath,
		Headless:        e.cfg.Headless,
		TimeoutMS:       e.cfg.TimeoutMS,
		PaginationLimit: e.cfg.PaginationMaxClicks,
	}
	if session != nil {
		payload.Cookies = session.Cookies
		if session.StatePath != "" {
			payload.StatePath = session.StatePath
		}
	}

	e.logger.Infof("Extracting task table from %s console", src)

	var out extractOutput
	err := e.runner.Run(ctx, extractScript(src), payload, &out)
	res := workflow.ExtractResult{
		PaginationClicks: out.PaginationClicks,
		Screenshots:      out.Screenshots,
	}
	if err != nil {
		e.logger.Errorf("Extraction from %s console failed: %v", src, err)
		return res, err
	}
	rows := make([]models.TaskRow, 0, len(out.Rows))
	for _, raw := range out.Rows {
		rows = append(rows, raw.toTaskRow())
	}
	res.Rows = rows
	e.logger.Infof("Extracted %d rows from %s console (%d pagination clicks)", len(rows), src, out.PaginationClicks)
	return res, nil
}

func (e *Extractor) sourceConfig(src models.Source) config.SourceConfig {
	if src == models.SourceNPrinting {
		return e.cfg.NPrinting
	}
	return e.cfg.QMC
}

func loginScript(src models.Source) string {
	if src == models.SourceNPrinting {
		return nprintingLoginScript
	}
	return qmcLoginScript
}

func extractScript(src models.Source) string {
	if src == models.SourceNPrinting {
		return nprintingExtractScript
	}
	return qmcExtractScript
}

// rawRow accepts the field-name and type variations the two consoles emit:
// "Name" vs "Task name", "Last execution" vs "Created", tags as a list or a
// comma-joined string.
type rawRow struct {
	Name          string
	Status        string
	LastExecution string
	Tags          []string
	Enabled       string
}

func (r *rawRow) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	r.Name = firstString(m, "name", "Name", "Task name", "task_name")
	r.Status = firstString(m, "status", "Status")
	r.LastExecution = firstString(m, "last_execution", "Last execution", "Created", "created")
	r.Enabled = firstString(m, "enabled", "Enabled")

	for _, key := range []string{"tags", "Tags"} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			r.Tags = list
			break
		}
		var joined string
		if err := json.Unmarshal(raw, &joined); err == nil {
			for _, t := range strings.Split(joined, ",") {
				if t = strings.TrimSpace(t); t != "" {
					r.Tags = append(r.Tags, t)
				}
			}
			break
		}
		return errors.Errorf("unsupported tags value %s", string(raw))
	}
	return nil
}

func (r rawRow) toTaskRow() models.TaskRow {
	return models.TaskRow{
		Name:          strings.TrimSpace(r.Name),
		Status:        strings.TrimSpace(r.Status),
		LastExecution: models.ParseExecutionTime(r.LastExecution),
		Tags:          r.Tags,
		Enabled:       models.Enabled(strings.TrimSpace(r.Enabled)),
	}
}

func firstString(m map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}
