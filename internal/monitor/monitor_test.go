package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(nil))
	assert.Equal(t, 1, CountLines([]byte("one")))
	assert.Equal(t, 2, CountLines([]byte("one\ntwo\n")))
	assert.Equal(t, 3, CountLines([]byte("one\n\nthree")))
}

func TestThresholdsCheck(t *testing.T) {
	th := DefaultThresholds()
	assert.Empty(t, th.Check(FileStatistics{Lines: 200, Size: 1 << 20, GrowthRate: 50}))

	got := th.Check(FileStatistics{Lines: 250, Size: 2 << 20, GrowthRate: 75.5})
	assert.Equal(t, []string{
		"line_count_exceeded:250>200",
		"size_exceeded:2097152>1048576",
		"growth_rate_exceeded:75.50>50",
	}, got)
}

func TestHistory_GrowthRate(t *testing.T) {
	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	h := NewHistory(nil)
	h.now = func() time.Time { return now }

	_, ok := h.LinesPerHour("a.md")
	assert.False(t, ok)

	h.Add(Snapshot{Path: "a.md", At: now.Add(-30 * time.Hour), Lines: 1})
	h.Add(Snapshot{Path: "a.md", At: now.Add(-2 * time.Hour), Lines: 100})
	h.Add(Snapshot{Path: "a.md", At: now, Lines: 200})

	rate, ok := h.LinesPerHour("a.md")
	require.True(t, ok)
	assert.InDelta(t, 50.0, rate, 1e-9)

	h.Add(Snapshot{Path: "b.md", At: now.Add(-time.Hour), Lines: 100})
	h.Add(Snapshot{Path: "b.md", At: now, Lines: 10})
	assert.Zero(t, h.GrowthRate("b.md"))
}

func TestHistory_RingLimit(t *testing.T) {
	h := NewHistory(nil)
	for i := 0; i < historyLimit+20; i++ {
		h.Add(Snapshot{Path: "a.md", Lines: i})
	}
	snaps := h.Snapshots("a.md")
	require.Len(t, snaps, historyLimit)
	assert.Equal(t, 20, snaps[0].Lines)
}

func TestStore_PersistAndRestore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	h := NewHistory(store)
	h.Add(Snapshot{Path: "a.md", At: now.Add(-48 * time.Hour), Lines: 1, Size: 10})
	h.Add(Snapshot{Path: "a.md", At: now.Add(-time.Hour), Lines: 10, Size: 100})
	h.Add(Snapshot{Path: "a.md", At: now, Lines: 30, Size: 300})
	require.NoError(t, store.Close())

	store, err = OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	restored := NewHistory(store)
	require.NoError(t, restored.Restore())
	snaps := restored.Snapshots("a.md")
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(300), snaps[1].Size)

	rate, ok := restored.LinesPerHour("a.md")
	require.True(t, ok)
	assert.InDelta(t, 20.0, rate, 0.01)

	n, err := store.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_InMemory(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Insert(Snapshot{Path: "x", At: time.Now(), Lines: 1}))
	snaps, err := store.Since(time.Time{})
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestMonitor_Matching(t *testing.T) {
	m, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)
	defer m.stop()

	assert.True(t, m.matches("/d/CLAUDE.md"))
	assert.True(t, m.matches("notes.txt"))
	assert.False(t, m.matches("/d/main.go"))

	assert.True(t, m.ignored("/d/.git"))
	assert.True(t, m.ignored("/d/x.pyc"))
	assert.True(t, m.ignored("/d/__pycache__"))
	assert.False(t, m.ignored("/d/docs"))
}

func TestMonitor_WatchRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "api"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	m, err := New(Config{Paths: []string{root}, Recursive: true, Ignore: []string{".*"}}, nil, nil)
	require.NoError(t, err)
	defer m.stop()

	assert.Equal(t, []string{root, filepath.Join(root, "docs"), filepath.Join(root, "docs", "api")}, m.WatchedPaths())

	m.Unwatch(filepath.Join(root, "docs"))
	assert.Equal(t, []string{root}, m.WatchedPaths())

	_, err = New(Config{Paths: []string{filepath.Join(root, "missing")}}, nil, nil)
	assert.Error(t, err)
}

func TestMonitor_ComputeStatistics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.md")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("line\n", 250)), 0o644))

	m, err := New(Config{}, nil, nil)
	require.NoError(t, err)
	defer m.stop()

	stats, err := m.Compute(path)
	require.NoError(t, err)
	assert.Equal(t, 250, stats.Lines)
	assert.Equal(t, int64(1250), stats.Size)
	assert.Equal(t, []string{"line_count_exceeded:250>200"}, m.cfg.Thresholds.Check(stats))

	got, ok := m.Statistics(path)
	require.True(t, ok)
	assert.Equal(t, stats, got)
	assert.Len(t, m.History().Snapshots(path), 1)
}

func TestMonitor_DebouncedEvents(t *testing.T) {
	dir := t.TempDir()
	events := make(chan Event, 10)
	m, err := New(Config{Paths: []string{dir}, Recursive: true, Debounce: 50 * time.Millisecond}, nil, func(ev Event) {
		events <- ev
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# A\n"), 0o644))
	for i := 0; i < 5; i++ {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("more\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.go"), []byte("package x"), 0o644))

	select {
	case ev := <-events:
		assert.Equal(t, path, ev.Path)
		assert.Equal(t, Created, ev.Type)
		require.NotNil(t, ev.Stats)
		assert.Equal(t, 6, ev.Stats.Lines)
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
}
