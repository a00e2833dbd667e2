package renderer

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"atsengine/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// TemplateWatcher watches a template directory and calls onChange once per
// burst of template file events.
type TemplateWatcher struct {
	mu sync.Mutex

	dir           string
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	onChange func()
	logger   *errors.Logger
	running  bool
}

// NewTemplateWatcher creates a watcher for dir. A zero debounce defaults to
// 500ms.
func NewTemplateWatcher(dir string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) (*TemplateWatcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("template directory is required")
	}
	if debounceDelay == 0 {
		debounceDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &TemplateWatcher{
		dir:           dir,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		onChange:      onChange,
		logger:        logger,
	}, nil
}

// Start begins watching.
func (tw *TemplateWatcher) Start() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.running {
		return fmt.Errorf("template watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(tw.dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			tw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch template directory %s: %w", tw.dir, err)
	}
	tw.fsWatcher = watcher
	tw.running = true
	go tw.watchLoop()

	tw.logger.Info("Template watcher started", "dir", tw.dir, "debounce_delay", tw.debounceDelay)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (tw *TemplateWatcher) Stop() error {
	tw.mu.Lock()
	if !tw.running {
		tw.mu.Unlock()
		return nil
	}
	close(tw.stopChan)
	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}
	tw.running = false
	err := tw.fsWatcher.Close()
	tw.mu.Unlock()

	<-tw.done
	if err != nil {
		tw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	tw.logger.Info("Template watcher stopped", "dir", tw.dir)
	return nil
}

// IsRunning returns whether the watcher is currently running
func (tw *TemplateWatcher) IsRunning() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.running
}

func (tw *TemplateWatcher) watchLoop() {
	defer close(tw.done)
	for {
		select {
		case event, ok := <-tw.fsWatcher.Events:
			if !ok {
				return
			}
			if isTemplateEvent(event) {
				tw.scheduleReload()
			}

		case err, ok := <-tw.fsWatcher.Errors:
			if !ok {
				return
			}
			tw.logger.LogError(err, "Template watcher error")

		case <-tw.reloadChan:
			tw.onChange()

		case <-tw.stopChan:
			return
		}
	}
}

func isTemplateEvent(event fsnotify.Event) bool {
	if !strings.HasSuffix(filepath.Base(event.Name), ".tmpl") {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

// scheduleReload restarts the debounce timer.
func (tw *TemplateWatcher) scheduleReload() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}
	tw.debounceTimer = time.AfterFunc(tw.debounceDelay, func() {
		select {
		case tw.reloadChan <- struct{}{}:
		default:
		}
	})
}
