// File: internal/infra/web/server_test.go
package web

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"jobpilot/internal/progress"
)

// readSSEFrame scans until the next "data:" line and decodes it.
func readSSEFrame(t *testing.T, sc *bufio.Scanner) progress.State {
	t.Helper()
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var st progress.State
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st))
		return st
	}
	t.Fatal("stream ended without a data frame")
	return progress.State{}
}

func TestProgressStream(t *testing.T) {
	f := newWebFixture(nil)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/pipeline/progress", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)

	// Subscribing delivers the current snapshot first.
	first := readSSEFrame(t, sc)
	require.Equal(t, progress.StepIdle, first.Step)

	f.b.StartCrawling(2)
	next := readSSEFrame(t, sc)
	require.Equal(t, progress.StepCrawling, next.Step)
	require.Equal(t, 2, next.SourcesTotal)

	f.b.Failed("all sources failed")
	failed := readSSEFrame(t, sc)
	require.Equal(t, progress.StepFailed, failed.Step)
	require.Equal(t, "all sources failed", failed.Error)
}

func TestProgressStreamRequiresAuth(t *testing.T) {
	f := newWebFixture(nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pipeline/progress", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnqueueFrameEvictsStalestWhenFull(t *testing.T) {
	frames := make(chan progress.State, 2)
	enqueueFrame(frames, progress.State{Step: progress.StepCrawling})
	enqueueFrame(frames, progress.State{Step: progress.StepScoring})

	// Buffer is full; the terminal snapshot must displace the oldest one.
	enqueueFrame(frames, progress.State{Step: progress.StepCompleted})

	require.Equal(t, progress.StepScoring, (<-frames).Step)
	require.Equal(t, progress.StepCompleted, (<-frames).Step)
	require.Empty(t, frames)
}
