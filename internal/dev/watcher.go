package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeRoute is a route source: Go or markdown.
	ChangeRoute ChangeType = iota
	// ChangeManifest is an asset manifest.
	ChangeManifest
	// ChangeAsset is anything else beside the routes.
	ChangeAsset
)

func (c ChangeType) String() string {
	switch c {
	case ChangeRoute:
		return "route"
	case ChangeManifest:
		return "manifest"
	default:
		return "asset"
	}
}

// Change represents a detected file change.
type Change struct {
	Path    string
	Type    ChangeType
	Removed bool
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the directories to watch, recursively.
	Paths []string

	// Ignore patterns to skip (names, path segments or globs).
	Ignore []string

	// Debounce is how long the watcher waits for a burst of events to end.
	Debounce time.Duration

	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	"*_test.go",
	".git",
	"node_modules",
	"tmp",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher reports batches of file changes under a set of directories.
type Watcher struct {
	config   WatcherConfig
	logger   *slog.Logger
	onChange func([]Change)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		config: config,
		logger: logger.With("component", "dev.watcher"),
	}
}

// OnChange sets the callback for file changes. It is called from the
// watcher goroutine with every change seen during one debounce window,
// at most once per path.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is canceled or Stop is called. Directories that
// do not exist yet are skipped; directories created later are picked up.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, root := range w.config.Paths {
		w.addRecursive(fsw, root)
	}

	pending := make(map[string]Change)
	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addRecursive(fsw, ev.Name)
				}
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			pending[ev.Name] = Change{
				Path:    ev.Name,
				Type:    classifyChange(ev.Name),
				Removed: ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename),
			}
			timer.Reset(w.config.Debounce)
		case <-timer.C:
			w.flush(pending)
			pending = make(map[string]Change)
		}
	}
}

func (w *Watcher) flush(pending map[string]Change) {
	if len(pending) == 0 {
		return
	}
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback == nil {
		return
	}

	changes := make([]Change, 0, len(pending))
	for _, c := range pending {
		changes = append(changes, c)
	}
	callback(changes)
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.logger.Warn("cannot watch directory", "path", p, "error", err)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("cannot walk watch root", "path", root, "error", err)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// relative returns p relative to the deepest watch root containing it, or p
// itself when no root does.
func (w *Watcher) relative(p string) string {
	best, bestLen := p, -1
	for _, root := range w.config.Paths {
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(root) > bestLen {
			best, bestLen = rel, len(root)
		}
	}
	return best
}

// shouldIgnore checks if a path should be ignored. Patterns apply to the
// part of the path below its watch root, so the directories above a
// project never cause events to be dropped.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	rel := w.relative(fullPath)
	if rel == "." {
		return false
	}
	name := filepath.Base(rel)
	normalized := filepath.ToSlash(rel)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/") || strings.Contains(pattern, "\\")
		hasGlob := strings.ContainsAny(pattern, "*?[")

		if hasGlob {
			if hasPathSep {
				if matched, _ := path.Match(filepath.ToSlash(pattern), normalized); matched {
					return true
				}
			} else {
				if matched, _ := filepath.Match(pattern, name); matched {
					return true
				}
			}
			continue
		}

		if hasPathSep {
			if pathMatchesSegments(normalized, filepath.ToSlash(pattern)) {
				return true
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(path, segment string) bool {
	if segment == "" {
		return false
	}
	for _, part := range splitPathSegments(path) {
		if part == segment {
			return true
		}
	}
	return false
}

func pathMatchesSegments(path, pattern string) bool {
	pathParts := splitPathSegments(path)
	patternParts := splitPathSegments(pattern)
	if len(patternParts) == 0 || len(patternParts) > len(pathParts) {
		return false
	}

	for i := 0; i <= len(pathParts)-len(patternParts); i++ {
		match := true
		for j := range patternParts {
			if pathParts[i+j] != patternParts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}

	return false
}

func splitPathSegments(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}

// classifyChange determines the type of change based on file extension.
func classifyChange(path string) ChangeType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go", ".md":
		return ChangeRoute
	case ".json":
		return ChangeManifest
	default:
		return ChangeAsset
	}
}
