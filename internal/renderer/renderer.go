// Package renderer turns improved résumé text into a document for one of the
// built-in templates.
package renderer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"atsengine/internal/dictionary"
	"atsengine/internal/errors"
	"atsengine/internal/types"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatPDF      = "pdf"
)

// Media types of rendered documents.
const (
	MediaTypeMarkdown = "text/markdown; charset=utf-8"
	MediaTypeHTML     = "text/html; charset=utf-8"
	MediaTypePDF      = "application/pdf"
)

//go:embed templates/*.tmpl
var builtin embed.FS

// Config controls output format and template loading.
type Config struct {
	Format string
	// TemplateDir holds <id>.md.tmpl, <id>.html.tmpl and base.html.tmpl
	// files that replace the built-in ones of the same name.
	TemplateDir    string
	WatchTemplates bool
	DebounceDelay  time.Duration
	PandocPath     string
	PDFEngine      string
}

type templateSet struct {
	markdown map[string]*texttemplate.Template
	html     map[string]*htmltemplate.Template
}

// Renderer is safe for concurrent use. The template set can be swapped at
// runtime by Reload.
type Renderer struct {
	mu  sync.RWMutex
	set *templateSet

	dict    *dictionary.Dictionary
	cfg     Config
	logger  *errors.Logger
	watcher *TemplateWatcher
}

// New loads the templates and, when configured, starts watching the
// template directory.
func New(cfg Config, dict *dictionary.Dictionary, logger *errors.Logger) (*Renderer, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	switch cfg.Format {
	case "":
		cfg.Format = FormatMarkdown
	case FormatMarkdown, FormatHTML, FormatPDF:
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported render format: %s", cfg.Format), nil)
	}
	if cfg.PandocPath == "" {
		cfg.PandocPath = "pandoc"
	}

	r := &Renderer{dict: dict, cfg: cfg, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}

	if cfg.TemplateDir != "" && cfg.WatchTemplates {
		w, err := NewTemplateWatcher(cfg.TemplateDir, cfg.DebounceDelay, r.reloadFromWatcher, logger)
		if err != nil {
			return nil, err
		}
		if err := w.Start(); err != nil {
			return nil, err
		}
		r.watcher = w
	}
	return r, nil
}

// Close stops the template watcher.
func (r *Renderer) Close() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Stop()
}

// Templates returns the available template IDs.
func (r *Renderer) Templates() []string {
	return append([]string(nil), types.TemplateIDs...)
}

// Format returns the configured output format.
func (r *Renderer) Format() string {
	return r.cfg.Format
}

// Reload parses the template set and swaps it in. On error the current set
// stays active.
func (r *Renderer) Reload() error {
	set, err := loadSet(r.cfg.TemplateDir)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load templates", err)
	}
	r.mu.Lock()
	r.set = set
	r.mu.Unlock()
	return nil
}

func (r *Renderer) reloadFromWatcher() {
	if err := r.Reload(); err != nil {
		r.logger.LogError(err, "Template reload failed, keeping previous templates", "dir", r.cfg.TemplateDir)
		return
	}
	r.logger.Info("Templates reloaded", "dir", r.cfg.TemplateDir)
}

func (r *Renderer) current() *templateSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set
}

// Render executes templateID over text. Every failure is RENDER_FAILED.
func (r *Renderer) Render(ctx context.Context, text, templateID string) (*types.RenderedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewRenderFailed("render cancelled", err)
	}
	set := r.current()
	layout := ParseLayout(text, r.dict)
	layout.TemplateID = templateID

	var (
		buf       bytes.Buffer
		mediaType string
	)
	switch r.cfg.Format {
	case FormatHTML:
		tmpl, ok := set.html[templateID]
		if !ok {
			return nil, unknownTemplate(templateID)
		}
		if err := tmpl.Execute(&buf, layout); err != nil {
			return nil, errors.NewRenderFailed("failed to execute HTML template", err).WithContext("template_id", templateID)
		}
		mediaType = MediaTypeHTML
	default:
		tmpl, ok := set.markdown[templateID]
		if !ok {
			return nil, unknownTemplate(templateID)
		}
		if err := tmpl.Execute(&buf, layout); err != nil {
			return nil, errors.NewRenderFailed("failed to execute markdown template", err).WithContext("template_id", templateID)
		}
		mediaType = MediaTypeMarkdown
	}

	content := buf.Bytes()
	if r.cfg.Format == FormatPDF {
		pdf, err := r.toPDF(ctx, content)
		if err != nil {
			return nil, err
		}
		content, mediaType = pdf, MediaTypePDF
	}

	return &types.RenderedDocument{
		Content:    content,
		MediaType:  mediaType,
		TemplateID: templateID,
	}, nil
}

func unknownTemplate(id string) error {
	return errors.NewRenderFailed(fmt.Sprintf("unknown template: %s", id), nil).WithContext("template_id", id)
}

func funcs() map[string]any {
	return map[string]any{
		"join":  strings.Join,
		"upper": strings.ToUpper,
		"inc":   func(i int) string { return strconv.Itoa(i + 1) },
	}
}

// loadSet parses every template, preferring files in dir over the
// embedded copies.
func loadSet(dir string) (*templateSet, error) {
	set := &templateSet{
		markdown: make(map[string]*texttemplate.Template, len(types.TemplateIDs)),
		html:     make(map[string]*htmltemplate.Template, len(types.TemplateIDs)),
	}
	base, err := readTemplate(dir, "base.html.tmpl")
	if err != nil {
		return nil, err
	}

	for _, id := range types.TemplateIDs {
		mdName := id + ".md.tmpl"
		src, err := readTemplate(dir, mdName)
		if err != nil {
			return nil, err
		}
		md, err := texttemplate.New(mdName).Funcs(funcs()).Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", mdName, err)
		}
		set.markdown[id] = md

		htmlName := id + ".html.tmpl"
		src, err = readTemplate(dir, htmlName)
		if err != nil {
			return nil, err
		}
		page, err := htmltemplate.New(htmlName).Funcs(funcs()).Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", htmlName, err)
		}
		if _, err := page.New("base.html.tmpl").Parse(string(base)); err != nil {
			return nil, fmt.Errorf("parse base.html.tmpl for %s: %w", id, err)
		}
		set.html[id] = page
	}
	return set, nil
}

func readTemplate(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- operator-configured directory
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}
	return builtin.ReadFile("templates/" + name)
}
