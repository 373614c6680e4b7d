// Package monitor watches documentation files, tracks their size and growth
// and reports threshold violations.
package monitor

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// EventType names a file change.
type EventType string

const (
	Created  EventType = "created"
	Modified EventType = "modified"
	Deleted  EventType = "deleted"
	Renamed  EventType = "renamed"
)

// Thresholds are the limits a watched file is checked against.
type Thresholds struct {
	Lines         int
	Bytes         int64
	GrowthPerHour float64
}

// DefaultThresholds are 200 lines, 1 MiB and 50 lines per hour.
func DefaultThresholds() Thresholds {
	return Thresholds{Lines: 200, Bytes: 1 << 20, GrowthPerHour: 50}
}

// Config controls what is watched.
type Config struct {
	Paths      []string
	Patterns   []string
	Ignore     []string
	Debounce   time.Duration
	Recursive  bool
	Thresholds Thresholds
}

// DefaultConfig watches *.md and *.txt recursively with a 1s debounce.
func DefaultConfig() Config {
	return Config{
		Patterns:   []string{"*.md", "*.txt"},
		Ignore:     []string{".*", "*.pyc", "__pycache__"},
		Debounce:   time.Second,
		Recursive:  true,
		Thresholds: DefaultThresholds(),
	}
}

// FileStatistics describes a file at the time of an event.
type FileStatistics struct {
	Size       int64     `json:"size"`
	Lines      int       `json:"line_count"`
	ModifiedAt time.Time `json:"last_modified"`
	GrowthRate float64   `json:"growth_rate"`
}

// Event is delivered to the Handler after debouncing.
type Event struct {
	Type       EventType       `json:"type"`
	Path       string          `json:"path"`
	At         time.Time       `json:"timestamp"`
	Stats      *FileStatistics `json:"statistics,omitempty"`
	Violations []string        `json:"violations,omitempty"`
}

// Handler receives events. It is called from timer goroutines, one call
// per debounced path at a time.
type Handler func(Event)

// Monitor wraps an fsnotify watcher with per-path debouncing.
type Monitor struct {
	cfg     Config
	history *History
	handler Handler
	fs      *fsnotify.Watcher

	mu          sync.Mutex
	pending     map[string]*time.Timer
	pendingType map[string]EventType
	stats       map[string]FileStatistics
	watched     map[string]bool
}

// New creates a Monitor. history may be nil for an in-memory history;
// handler may be nil.
func New(cfg Config, history *History, handler Handler) (*Monitor, error) {
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = def.Patterns
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if history == nil {
		history = NewHistory(nil)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	m := &Monitor{
		cfg:         cfg,
		history:     history,
		handler:     handler,
		fs:          w,
		pending:     map[string]*time.Timer{},
		pendingType: map[string]EventType{},
		stats:       map[string]FileStatistics{},
		watched:     map[string]bool{},
	}
	for _, p := range cfg.Paths {
		if err := m.Watch(p); err != nil {
			w.Close()
			return nil, err
		}
	}
	return m, nil
}

// History returns the snapshot history used for growth rates.
func (m *Monitor) History() *History { return m.history }

// Watch adds path. Directories are added recursively when configured,
// skipping ignored names.
func (m *Monitor) Watch(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if !st.IsDir() || !m.cfg.Recursive {
		return m.add(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && m.ignored(p) {
			return filepath.SkipDir
		}
		return m.add(p)
	})
}

func (m *Monitor) add(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watched[path] {
		return nil
	}
	if err := m.fs.Add(path); err != nil {
		return fmt.Errorf("failed to add %s to watcher: %w", path, err)
	}
	m.watched[path] = true
	log.Debug().Str("path", path).Msg("watching path")
	return nil
}

// Unwatch stops watching path and any watched directories below it.
func (m *Monitor) Unwatch(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.watched {
		if p == path || strings.HasPrefix(p, path+string(filepath.Separator)) {
			_ = m.fs.Remove(p)
			delete(m.watched, p)
		}
	}
}

// WatchedPaths lists the watched files and directories, sorted.
func (m *Monitor) WatchedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.watched))
	for p := range m.watched {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Statistics returns the last statistics computed for path.
func (m *Monitor) Statistics(path string) (FileStatistics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[path]
	return s, ok
}

// Run processes events until ctx is done or the watcher fails.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-m.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			m.dispatch(ev)
		case err, ok := <-m.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			if err != nil {
				log.Warn().Err(err).Msg("watcher error")
			}
		}
	}
}

func (m *Monitor) stop() {
	m.mu.Lock()
	for _, t := range m.pending {
		t.Stop()
	}
	m.pending = map[string]*time.Timer{}
	m.pendingType = map[string]EventType{}
	m.mu.Unlock()
	_ = m.fs.Close()
}

func (m *Monitor) dispatch(ev fsnotify.Event) {
	if m.ignored(ev.Name) {
		return
	}
	var typ EventType
	switch {
	case ev.Op.Has(fsnotify.Create):
		typ = Created
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			if m.cfg.Recursive {
				if err := m.Watch(ev.Name); err != nil {
					log.Warn().Err(err).Str("path", ev.Name).Msg("new directory not watched")
				}
			}
			return
		}
	case ev.Op.Has(fsnotify.Write):
		typ = Modified
	case ev.Op.Has(fsnotify.Remove):
		typ = Deleted
	case ev.Op.Has(fsnotify.Rename):
		typ = Renamed
	default:
		return
	}
	if !m.matches(ev.Name) {
		return
	}
	m.debounce(ev.Name, typ)
}

// debounce schedules processing of path, replacing any pending timer so
// only the last event in a burst is handled.
func (m *Monitor) debounce(path string, typ EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.pending[path]; ok {
		t.Stop()
		// a write right after a create still reports the create
		if typ == Modified && m.pendingType[path] == Created {
			typ = Created
		}
	}
	m.pendingType[path] = typ
	var t *time.Timer
	t = time.AfterFunc(m.cfg.Debounce, func() {
		m.mu.Lock()
		if m.pending[path] == t {
			delete(m.pending, path)
			delete(m.pendingType, path)
		}
		m.mu.Unlock()
		m.process(path, typ)
	})
	m.pending[path] = t
}

func (m *Monitor) process(path string, typ EventType) {
	ev := Event{Type: typ, Path: path, At: time.Now().UTC()}
	if typ == Created || typ == Modified {
		stats, err := m.Compute(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("statistics unavailable")
		} else {
			ev.Stats = &stats
			ev.Violations = m.cfg.Thresholds.Check(stats)
			if len(ev.Violations) > 0 {
				log.Warn().Str("path", path).Strs("violations", ev.Violations).
					Int("lines", stats.Lines).Int64("size", stats.Size).
					Float64("growth_rate", stats.GrowthRate).Msg("threshold violations")
			}
		}
	}
	log.Debug().Str("type", string(typ)).Str("path", path).Msg("file event")
	if m.handler != nil {
		m.handler(ev)
	}
}

// Compute measures path, records a snapshot and returns the statistics
// including the growth rate over the recorded history.
func (m *Monitor) Compute(path string) (FileStatistics, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileStatistics{}, err
	}
	if st.IsDir() {
		return FileStatistics{}, fmt.Errorf("%s is a directory", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return FileStatistics{}, err
	}
	lines := CountLines(b)
	m.history.Add(Snapshot{Path: path, Lines: lines, Size: st.Size()})
	stats := FileStatistics{
		Size:       st.Size(),
		Lines:      lines,
		ModifiedAt: st.ModTime(),
		GrowthRate: m.history.GrowthRate(path),
	}
	m.mu.Lock()
	m.stats[path] = stats
	m.mu.Unlock()
	return stats, nil
}

// CountLines counts lines the way a line iterator would: a trailing
// newline does not start another line.
func CountLines(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	n := bytes.Count(b, []byte{'\n'})
	if b[len(b)-1] != '\n' {
		n++
	}
	return n
}

// Check lists the thresholds stats exceeds.
func (t Thresholds) Check(stats FileStatistics) []string {
	var out []string
	if t.Lines > 0 && stats.Lines > t.Lines {
		out = append(out, fmt.Sprintf("line_count_exceeded:%d>%d", stats.Lines, t.Lines))
	}
	if t.Bytes > 0 && stats.Size > t.Bytes {
		out = append(out, fmt.Sprintf("size_exceeded:%d>%d", stats.Size, t.Bytes))
	}
	if t.GrowthPerHour > 0 && stats.GrowthRate > t.GrowthPerHour {
		out = append(out, fmt.Sprintf("growth_rate_exceeded:%.2f>%g", stats.GrowthRate, t.GrowthPerHour))
	}
	return out
}

// ignored reports whether the base name matches an ignore pattern. Files
// below ignored directories are never seen since those are not watched.
func (m *Monitor) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pat := range m.cfg.Ignore {
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}

// matches reports whether the base name matches a watch pattern.
func (m *Monitor) matches(path string) bool {
	base := filepath.Base(path)
	for _, pat := range m.cfg.Patterns {
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}
