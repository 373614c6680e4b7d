package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/trapperkeeper/internal/category"
)

func TestCollector_Counts(t *testing.T) {
	c := New()
	c.FileDone("markdown", 10*time.Millisecond, nil)
	c.FileDone("markdown", 5*time.Millisecond, errors.New("boom"))
	c.Extracted(category.Of(category.Security), 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.FilesProcessed.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FilesProcessed.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ContentsExtracted.WithLabelValues("🔐 Security")))
}

func TestRouter_Endpoints(t *testing.T) {
	c := New()
	d := category.NewDetector(nil)
	require.NoError(t, c.RegisterDetector(d))
	d.BatchDetect([]category.Input{{Content: "password token", Title: "Auth"}, {Content: "password token", Title: "Auth"}})
	c.WatchedPaths.Set(2)

	srv := httptest.NewServer(c.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	text := string(body)
	for _, want := range []string{
		"trapperkeeper_watched_paths 2",
		"trapperkeeper_detector_cache_hits_total 1",
		"trapperkeeper_detector_cache_misses_total 1",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(text, want), "missing %q", want)
	}
}

func TestRegisterDetector_Twice(t *testing.T) {
	c := New()
	d := category.NewDetector(nil)
	require.NoError(t, c.RegisterDetector(d))
	assert.Error(t, c.RegisterDetector(d))
}

func TestRouter_UnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
