package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"atsengine/internal/errors"
)

// PandocAvailable reports whether the configured pandoc binary is on PATH.
func (r *Renderer) PandocAvailable() bool {
	_, err := exec.LookPath(r.cfg.PandocPath)
	return err == nil
}

// toPDF converts markdown to PDF with pandoc. Pandoc cannot write PDF to
// stdout, so the output goes through a temporary file.
func (r *Renderer) toPDF(ctx context.Context, markdown []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "atsengine-render-*")
	if err != nil {
		return nil, errors.NewRenderFailed("failed to create temp dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("Failed to remove render temp dir", "dir", dir, "error", err.Error())
		}
	}()

	out := filepath.Join(dir, "resume.pdf")
	args := []string{"--from", "markdown", "--output", out}
	if r.cfg.PDFEngine != "" {
		args = append(args, "--pdf-engine="+r.cfg.PDFEngine)
	}

	// #nosec G204 -- binary path comes from operator configuration
	cmd := exec.CommandContext(ctx, r.cfg.PandocPath, args...)
	cmd.Stdin = bytes.NewReader(markdown)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.NewRenderFailed(fmt.Sprintf("pandoc failed: %s", bytes.TrimSpace(stderr.Bytes())), err).
			WithContext("pandoc", r.cfg.PandocPath)
	}

	pdf, err := os.ReadFile(out) // #nosec G304 -- path created above
	if err != nil {
		return nil, errors.NewRenderFailed("failed to read pandoc output", err)
	}
	return pdf, nil
}
