// Package watcher rescans source trees when files under them change.
package watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Result is what one analysis run reports back
type Result struct {
	Nodes int
	Edges int
}

// AnalyzeFunc runs a full analysis; it is never called concurrently with itself
type AnalyzeFunc func() (Result, error)

// Watcher watches for file changes and triggers reanalysis
type Watcher struct {
	roots     []string
	analyze   AnalyzeFunc
	fsWatcher *fsnotify.Watcher
	logger    *slog.Logger

	include func(path string) bool
	skipDir func(name string) bool

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer
	analyzeMu     sync.Mutex

	// Callbacks
	onAnalysisStart func(changed []string)
	onAnalysisDone  func(result Result, duration time.Duration)
	onError         func(error)

	// Control
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures the watcher
type Option func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithFilter restricts the files whose changes trigger analysis
func WithFilter(include func(path string) bool) Option {
	return func(w *Watcher) {
		w.include = include
	}
}

// WithSkipDir sets which directory names are not watched
func WithSkipDir(skip func(name string) bool) Option {
	return func(w *Watcher) {
		w.skipDir = skip
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithOnAnalysisStart sets the callback for when analysis starts
func WithOnAnalysisStart(fn func(changed []string)) Option {
	return func(w *Watcher) {
		w.onAnalysisStart = fn
	}
}

// WithOnAnalysisDone sets the callback for when analysis completes
func WithOnAnalysisDone(fn func(result Result, duration time.Duration)) Option {
	return func(w *Watcher) {
		w.onAnalysisDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher over roots. Directory roots are watched recursively;
// a file root is watched through its parent directory.
func New(roots []string, analyze AnalyzeFunc, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		roots:         roots,
		analyze:       analyze,
		fsWatcher:     fsWatcher,
		logger:        slog.Default(),
		include:       func(string) bool { return true },
		skipDir:       func(name string) bool { return strings.HasPrefix(name, ".") },
		debounceDelay: 500 * time.Millisecond,
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.addRoots(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

func (w *Watcher) addRoots() error {
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if err := w.fsWatcher.Add(filepath.Dir(root)); err != nil {
				return err
			}
			continue
		}
		if err := w.addDirs(root); err != nil {
			return err
		}
	}
	return nil
}

// addDirs recursively adds all directories under root to the watcher
func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher and cancels any pending analysis
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handleEvent processes a single file system event. Removed files cannot be
// inspected, so they only need a visible base name to count.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.skipDir(filepath.Base(event.Name)) {
				if err := w.addDirs(event.Name); err != nil {
					w.reportError(err)
				}
			}
			return
		}
	}

	gone := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if !gone && !w.include(event.Name) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.pendingFiles[event.Name] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerAnalysis)
}

// triggerAnalysis runs the analysis after debounce
func (w *Watcher) triggerAnalysis() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)

	w.analyzeMu.Lock()
	defer w.analyzeMu.Unlock()

	if w.onAnalysisStart != nil {
		w.onAnalysisStart(files)
	}
	w.logger.Debug("rescanning", "changed", len(files))

	startTime := time.Now()
	result, err := w.analyze()
	if err != nil {
		w.reportError(fmt.Errorf("analysis failed: %w", err))
		return
	}
	duration := time.Since(startTime)

	w.logger.Info("rescan complete", "nodes", result.Nodes, "edges", result.Edges, "duration", duration)
	if w.onAnalysisDone != nil {
		w.onAnalysisDone(result, duration)
	}
}

func (w *Watcher) reportError(err error) {
	w.logger.Warn("watch error", "error", err)
	if w.onError != nil {
		w.onError(err)
	}
}
