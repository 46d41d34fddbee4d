package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pindl/pkg/config"
	"pindl/pkg/pinterest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.MaxRetries = 0
	cfg.RateLimit.RequestsPerMinute = 100000
	cfg.Output.BaseDirectory = t.TempDir()
	return cfg
}

// newPinServer serves a pin page with one downloadable image on the same
// host, so the whole pipeline runs without touching the real site.
func newPinServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/media/cc.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			fmt.Fprint(w, "image bytes")
		case "/oembed.json", "/v3/pidgets/pins/info/":
			http.NotFound(w, req)
		default:
			fmt.Fprintf(w, `<meta property="og:image" content="%s/media/cc.jpg"/>`, server.URL)
		}
	}))
	return server
}

func collectEvents(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var collected []Event
	timeout := time.After(30 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, ev)
		case <-timeout:
			t.Fatal("timed out waiting for engine events")
		}
	}
}

func TestRunDownloadsQueue(t *testing.T) {
	server := newPinServer(t)
	defer server.Close()

	cfg := testConfig(t)
	eng, err := New(cfg)
	require.NoError(t, err)
	eng.Client().SetWebBase(server.URL)
	eng.Client().SetAPIBase(server.URL)

	input := server.URL + "/page-one\n" +
		"definitely not a url\n" +
		server.URL + "/page-two\n"

	events := collectEvents(t, eng.Run(context.Background(), input))

	queue := findQueuePrepared(t, events)
	assert.Len(t, queue.Items, 2)
	require.Len(t, queue.Notes, 1)
	assert.Contains(t, queue.Notes[0], "Invalid URL skipped: definitely not a url")

	completed := findCompleted(t, events)
	assert.Equal(t, 2, completed.Total)
	assert.Equal(t, 2, completed.Success)
	assert.Equal(t, 0, completed.Failed)
	assert.False(t, completed.Cancelled)

	var downloaded []RowUpdate
	for _, ev := range events {
		if row, ok := ev.(RowUpdate); ok && row.Status == StatusDownloaded {
			downloaded = append(downloaded, row)
		}
	}
	require.Len(t, downloaded, 2)
	for i, row := range downloaded {
		assert.Equal(t, i+1, row.Index)
		assert.Equal(t, pinterest.MediaTypeImage, row.MediaType)
		data, err := os.ReadFile(row.SavedPath)
		require.NoError(t, err)
		assert.Equal(t, "image bytes", string(data))
	}
}

func TestRunEventOrdering(t *testing.T) {
	server := newPinServer(t)
	defer server.Close()

	cfg := testConfig(t)
	eng, err := New(cfg)
	require.NoError(t, err)
	eng.Client().SetWebBase(server.URL)
	eng.Client().SetAPIBase(server.URL)

	events := collectEvents(t, eng.Run(context.Background(), server.URL+"/page-one"))

	require.NotEmpty(t, events)
	_, ok := events[0].(QueuePrepared)
	assert.True(t, ok, "the queue snapshot comes first")
	_, ok = events[len(events)-1].(Completed)
	assert.True(t, ok, "the summary comes last")

	// Each item goes Processing before any terminal status.
	var sawProcessing bool
	for _, ev := range events {
		row, ok := ev.(RowUpdate)
		if !ok {
			continue
		}
		if row.Status == StatusProcessing {
			sawProcessing = true
		} else {
			assert.True(t, sawProcessing, "terminal status before Processing")
		}
	}
}

func TestRunReportsPerItemFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}))
	defer server.Close()

	cfg := testConfig(t)
	eng, err := New(cfg)
	require.NoError(t, err)
	eng.Client().SetWebBase(server.URL)
	eng.Client().SetAPIBase(server.URL)

	events := collectEvents(t, eng.Run(context.Background(), server.URL+"/page-one"))

	completed := findCompleted(t, events)
	assert.Equal(t, 1, completed.Total)
	assert.Equal(t, 0, completed.Success)
	assert.Equal(t, 1, completed.Failed)

	var failure *RowUpdate
	for _, ev := range events {
		if row, ok := ev.(RowUpdate); ok && row.Status == StatusFailed {
			failure = &row
			break
		}
	}
	require.NotNil(t, failure)
	assert.NotEmpty(t, failure.Error)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	server := newPinServer(t)
	defer server.Close()

	cfg := testConfig(t)
	eng, err := New(cfg)
	require.NoError(t, err)
	eng.Client().SetWebBase(server.URL)
	eng.Client().SetAPIBase(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := collectEvents(t, eng.Run(ctx, server.URL+"/page-one"))

	completed := findCompleted(t, events)
	assert.True(t, completed.Cancelled)
	assert.Equal(t, 0, completed.Success)
}

func TestRunEmptyInput(t *testing.T) {
	cfg := testConfig(t)
	eng, err := New(cfg)
	require.NoError(t, err)

	events := collectEvents(t, eng.Run(context.Background(), "\n\n"))

	completed := findCompleted(t, events)
	assert.Equal(t, 0, completed.Total)
	assert.False(t, completed.Cancelled)
}

func TestRunExpandsProfiles(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/someuser/":
			// Profile page without the state blob: the HTML fallback finds
			// the pin links.
			fmt.Fprint(w, `<a href="/pin/111/">a</a><a href="/pin/222/">b</a>`)
		case "/media/cc.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			fmt.Fprint(w, "image bytes")
		case "/oembed.json", "/v3/pidgets/pins/info/":
			http.NotFound(w, req)
		default:
			fmt.Fprintf(w, `<meta property="og:image" content="%s/media/cc.jpg"/>`, server.URL)
		}
	}))
	defer server.Close()

	cfg := testConfig(t)
	eng, err := New(cfg)
	require.NoError(t, err)
	eng.Client().SetWebBase(server.URL)
	eng.Client().SetAPIBase(server.URL)

	events := collectEvents(t, eng.Run(context.Background(), "https://www.pinterest.com/someuser/"))

	queue := findQueuePrepared(t, events)
	assert.Equal(t, []string{
		pinterest.CanonicalPinURL("111"),
		pinterest.CanonicalPinURL("222"),
	}, queue.Items)
	require.NotEmpty(t, queue.Notes)
	assert.Contains(t, queue.Notes[0], "Profile @someuser: discovered 2 pin(s).")

	completed := findCompleted(t, events)
	assert.Equal(t, 2, completed.Discovered)
}

func TestRunProfileFailureBecomesNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}))
	defer server.Close()

	cfg := testConfig(t)
	eng, err := New(cfg)
	require.NoError(t, err)
	eng.Client().SetWebBase(server.URL)
	eng.Client().SetAPIBase(server.URL)

	events := collectEvents(t, eng.Run(context.Background(), "https://www.pinterest.com/someuser/"))

	queue := findQueuePrepared(t, events)
	assert.Empty(t, queue.Items)
	require.NotEmpty(t, queue.Notes)
	assert.Contains(t, queue.Notes[0], "Profile scan failed")

	completed := findCompleted(t, events)
	assert.Equal(t, 0, completed.Total)
}

func findQueuePrepared(t *testing.T, events []Event) QueuePrepared {
	t.Helper()
	for _, ev := range events {
		if queue, ok := ev.(QueuePrepared); ok {
			return queue
		}
	}
	t.Fatal("no QueuePrepared event emitted")
	return QueuePrepared{}
}

func findCompleted(t *testing.T, events []Event) Completed {
	t.Helper()
	for _, ev := range events {
		if completed, ok := ev.(Completed); ok {
			return completed
		}
	}
	t.Fatal("no Completed event emitted")
	return Completed{}
}
