package analyst

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

// ErrInvalidResponse marks a collaborator response that does not contain a
// usable report record. It triggers the retry path.
var ErrInvalidResponse = errors.New("invalid classifier response")

// reportPayload is the wire shape expected inside the collaborator's text.
type reportPayload struct {
	Status       string   `json:"status"`
	Summary      string   `json:"summary"`
	FailedTasks  []string `json:"failed_tasks"`
	RunningTasks []string `json:"running_tasks"`
	TaskCount    int      `json:"task_count"`
	TotalTasks   int      `json:"total_tasks"`
}

// ParseReport extracts a GroupReport from raw collaborator text. The text may
// wrap the JSON in markdown fences. A bare JSON list is searched for the
// first element that looks like a valid report record; anything else is a
// hard validation failure.
func ParseReport(raw string) (models.GroupReport, error) {
	content := strings.TrimSpace(stripFences(raw))
	if content == "" {
		return models.GroupReport{}, errors.Wrap(ErrInvalidResponse, "empty response")
	}

	if strings.HasPrefix(content, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(content), &elems); err != nil {
			return models.GroupReport{}, errors.Wrapf(ErrInvalidResponse, "malformed list: %v", err)
		}
		for _, elem := range elems {
			var p reportPayload
			if err := json.Unmarshal(elem, &p); err != nil {
				continue
			}
			if report, err := validate(p); err == nil {
				return report, nil
			}
		}
		return models.GroupReport{}, errors.Wrap(ErrInvalidResponse, "list contains no valid report record")
	}

	var p reportPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return models.GroupReport{}, errors.Wrapf(ErrInvalidResponse, "malformed object: %v", err)
	}
	return validate(p)
}

func validate(p reportPayload) (models.GroupReport, error) {
	status, ok := models.ParseStatus(p.Status)
	if !ok {
		return models.GroupReport{}, errors.Wrapf(ErrInvalidResponse, "unrecognized status %q", p.Status)
	}
	if strings.TrimSpace(p.Summary) == "" {
		return models.GroupReport{}, errors.Wrap(ErrInvalidResponse, "missing summary")
	}
	count := p.TaskCount
	if count == 0 {
		count = p.TotalTasks
	}
	return models.GroupReport{
		Status:       status,
		Summary:      strings.TrimSpace(p.Summary),
		FailedTasks:  p.FailedTasks,
		RunningTasks: p.RunningTasks,
		TaskCount:    count,
	}, nil
}

// stripFences removes a markdown code fence around the payload, if present.
func stripFences(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return s
	}
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return s
}
