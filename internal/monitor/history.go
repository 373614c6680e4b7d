package monitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	historyLimit  = 100
	historyWindow = 24 * time.Hour
)

// Snapshot is the size of a file at one point in time.
type Snapshot struct {
	Path  string
	At    time.Time
	Lines int
	Size  int64
}

// History keeps the most recent snapshots per path in memory and mirrors
// them to an optional Store.
type History struct {
	mu    sync.Mutex
	snaps map[string][]Snapshot
	store *Store
	now   func() time.Time
}

// NewHistory returns a History. store may be nil.
func NewHistory(store *Store) *History {
	return &History{snaps: map[string][]Snapshot{}, store: store, now: time.Now}
}

// Restore loads the last 24 hours of snapshots from the store.
func (h *History) Restore() error {
	if h.store == nil {
		return nil
	}
	snaps, err := h.store.Since(h.now().Add(-historyWindow))
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range snaps {
		h.appendLocked(s)
	}
	log.Debug().Int("snapshots", len(snaps)).Msg("history restored")
	return nil
}

// Add records a snapshot. A store failure is logged and the in-memory
// history is still updated.
func (h *History) Add(s Snapshot) {
	if s.At.IsZero() {
		s.At = h.now()
	}
	h.mu.Lock()
	h.appendLocked(s)
	h.mu.Unlock()
	if h.store != nil {
		if err := h.store.Insert(s); err != nil {
			log.Warn().Err(err).Str("path", s.Path).Msg("snapshot not persisted")
		}
	}
}

func (h *History) appendLocked(s Snapshot) {
	list := append(h.snaps[s.Path], s)
	if len(list) > historyLimit {
		list = list[len(list)-historyLimit:]
	}
	h.snaps[s.Path] = list
}

// Snapshots returns the recorded snapshots for path, oldest first.
func (h *History) Snapshots(path string) []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Snapshot(nil), h.snaps[path]...)
}

// window returns the snapshots for path taken within the last 24 hours.
func (h *History) window(path string) []Snapshot {
	cutoff := h.now().Add(-historyWindow)
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Snapshot
	for _, s := range h.snaps[path] {
		if s.At.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// GrowthRate is the line growth in lines per hour between the first and
// last snapshot of the last 24 hours. Shrinking files report 0.
func (h *History) GrowthRate(path string) float64 {
	rate, _ := h.LinesPerHour(path)
	return rate
}

// LinesPerHour reports the growth rate when at least two snapshots exist
// within the window.
func (h *History) LinesPerHour(path string) (float64, bool) {
	w := h.window(path)
	if len(w) < 2 {
		return 0, false
	}
	first, last := w[0], w[len(w)-1]
	hours := last.At.Sub(first.At).Hours()
	if hours <= 0 {
		return 0, true
	}
	rate := float64(last.Lines-first.Lines) / hours
	if rate < 0 {
		rate = 0
	}
	return rate, true
}
