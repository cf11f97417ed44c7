// Package llm is the natural-language collaborator: a thin client over the
// GenAI API providing group classification and the executive summary.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
	"github.com/KevinLopezPastor/qmc-agent/pkg/workflow"
)

// Logger defines the logging interface for the LLM client.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Client talks to the GenAI service. It implements analyst.Classifier and
// combine.Summarizer.
type Client struct {
	client *genai.Client
	model  string
	logger Logger
}

// NewClient builds the collaborator client. A missing API key is a
// collaborator-unavailable condition: the run fails fast instead of retrying.
func NewClient(ctx context.Context, apiKey, model string, logger Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.Wrap(workflow.ErrCollaboratorUnavailable, "GENAI_API_KEY is not set")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, errors.Wrapf(workflow.ErrCollaboratorUnavailable, "creating GenAI client: %v", err)
	}
	return &Client{client: client, model: model, logger: logger}, nil
}

// Classify asks the model for one group's verdict and returns the raw
// response text. Parsing and retry policy live with the caller.
func (c *Client) Classify(ctx context.Context, group string, rows []models.SimplifiedRow) (string, error) {
	tasks, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshalling task rows")
	}

	prompt := fmt.Sprintf(classifyPrompt, group, string(tasks))
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", errors.Wrapf(err, "generating classification for %s", group)
	}
	return result.Text(), nil
}

// Summarize asks the model for a one-paragraph executive summary of the
// combined report.
func (c *Client) Summarize(ctx context.Context, report models.CombinedReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshalling combined report")
	}

	prompt := fmt.Sprintf(summaryPrompt, string(data))
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", errors.Wrap(err, "generating summary")
	}
	return strings.TrimSpace(result.Text()), nil
}
