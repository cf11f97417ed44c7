package script

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/KevinLopezPastor/qmc-agent/pkg/workflow"
)

const reportScript = "render_report.py"

// ImageRenderer produces the unified report image through the rendering
// script.
type ImageRenderer struct {
	runner *Runner
	logger Logger
}

// NewImageRenderer builds a script-backed renderer.
func NewImageRenderer(runner *Runner, logger Logger) *ImageRenderer {
	return &ImageRenderer{runner: runner, logger: logger}
}

type renderOutput struct {
	envelope
	Path string `json:"path"`
}

// Render writes the report image and returns its final path. The dated output
// directory is created here so the script only has to write the file.
func (r *ImageRenderer) Render(ctx context.Context, req workflow.RenderRequest) (string, error) {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", errors.Wrap(err, "creating report directory")
	}

	var out renderOutput
	if err := r.runner.Run(ctx, reportScript, req, &out); err != nil {
		return "", err
	}
	path := out.Path
	if path == "" {
		path = req.OutputPath
	}
	r.logger.Infof("report image written to %s", path)
	return path, nil
}
