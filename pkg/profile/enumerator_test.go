package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pindl/pkg/config"
	"pindl/pkg/pinterest"
)

const profileURL = "https://www.pinterest.com/someuser/"

func newTestClient(t *testing.T, serverURL string) *pinterest.Client {
	t.Helper()
	cfg := &config.HTTPConfig{
		Timeout:        5 * time.Second,
		UserAgent:      "test-agent",
		AcceptLanguage: "en-US",
		MaxRetries:     0,
	}
	client := pinterest.NewClient(cfg, nil)
	client.SetWebBase(serverURL)
	return client
}

// initialPropsPage builds a profile page whose embedded state preloads the
// given rows and continuation bookmark.
func initialPropsPage(t *testing.T, rows []map[string]interface{}, bookmark string) string {
	t.Helper()
	blob := map[string]interface{}{
		"initialReduxState": map[string]interface{}{
			"resources": map[string]interface{}{
				"UserPinsResource": map[string]interface{}{
					"somekey": map[string]interface{}{
						"data":         rows,
						"nextBookmark": bookmark,
					},
				},
			},
		},
	}
	encoded, err := json.Marshal(blob)
	require.NoError(t, err)
	return fmt.Sprintf(`<html><body>
<script id="__PWS_INITIAL_PROPS__" type="application/json">%s</script>
</body></html>`, encoded)
}

// requestBookmark pulls the bookmark out of a listing request's options
// payload.
func requestBookmark(req *http.Request) string {
	var payload struct {
		Options struct {
			Bookmarks []string `json:"bookmarks"`
		} `json:"options"`
	}
	if err := json.Unmarshal([]byte(req.URL.Query().Get("data")), &payload); err != nil {
		return ""
	}
	if len(payload.Options.Bookmarks) == 0 {
		return ""
	}
	return payload.Options.Bookmarks[0]
}

func listingResponse(rows []map[string]interface{}, bookmark string) map[string]interface{} {
	return map[string]interface{}{
		"resource_response": map[string]interface{}{
			"data":     rows,
			"bookmark": bookmark,
		},
	}
}

func TestEnumerateWithPagination(t *testing.T) {
	var sawCSRFHeader bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/someuser/":
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "token123"})
			fmt.Fprint(w, initialPropsPage(t, []map[string]interface{}{
				{"id": "111"},
				{"seo_url": "/pin/222/cool-slug/"},
			}, "bm1"))

		case "/resource/UserPinsResource/get/":
			assert.Equal(t, http.MethodPost, req.Method)
			if req.Header.Get("X-CSRFToken") == "token123" {
				sawCSRFHeader = true
			}
			switch requestBookmark(req) {
			case "bm1":
				json.NewEncoder(w).Encode(listingResponse([]map[string]interface{}{
					{"id": "333"},
				}, "bm2"))
			case "bm2":
				json.NewEncoder(w).Encode(listingResponse([]map[string]interface{}{
					{"id": "444"},
				}, pinterest.TerminalBookmark))
			default:
				json.NewEncoder(w).Encode(listingResponse(nil, pinterest.TerminalBookmark))
			}

		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	e := New(newTestClient(t, server.URL), nil, nil)
	result, err := e.Enumerate(context.Background(), profileURL, 0)

	require.NoError(t, err)
	assert.Equal(t, "someuser", result.Username)
	assert.Equal(t, "https://www.pinterest.com/someuser/", result.ProfileURL)
	assert.Equal(t, []string{
		pinterest.CanonicalPinURL("111"),
		pinterest.CanonicalPinURL("222"),
		pinterest.CanonicalPinURL("333"),
		pinterest.CanonicalPinURL("444"),
	}, result.PinURLs)
	assert.Equal(t, 4, result.DiscoveredCount)
	assert.True(t, sawCSRFHeader, "the csrftoken cookie must echo back as X-CSRFToken")
}

func TestEnumerateMaxPinsTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/someuser/":
			fmt.Fprint(w, initialPropsPage(t, []map[string]interface{}{
				{"id": "111"},
				{"id": "222"},
			}, "bm1"))
		case "/resource/UserPinsResource/get/":
			json.NewEncoder(w).Encode(listingResponse([]map[string]interface{}{
				{"id": "333"},
				{"id": "444"},
			}, "bm2"))
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	e := New(newTestClient(t, server.URL), nil, nil)
	result, err := e.Enumerate(context.Background(), profileURL, 3)

	require.NoError(t, err)
	assert.Len(t, result.PinURLs, 3)
	assert.Equal(t, 4, result.DiscoveredCount, "the count reflects everything seen before truncation")
}

func TestEnumerateRepeatedBookmarkStops(t *testing.T) {
	var listingCalls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/someuser/":
			fmt.Fprint(w, initialPropsPage(t, []map[string]interface{}{
				{"id": "111"},
			}, "bm1"))
		case "/resource/UserPinsResource/get/":
			listingCalls++
			// Always report the same continuation bookmark.
			json.NewEncoder(w).Encode(listingResponse([]map[string]interface{}{
				{"id": "333"},
			}, "bm1"))
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	e := New(newTestClient(t, server.URL), nil, nil)
	result, err := e.Enumerate(context.Background(), profileURL, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, listingCalls, "a repeated bookmark must stop the pagination")
	assert.Equal(t, []string{
		pinterest.CanonicalPinURL("111"),
		pinterest.CanonicalPinURL("333"),
	}, result.PinURLs)
}

func TestEnumerateForbiddenListingEndsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/someuser/":
			fmt.Fprint(w, initialPropsPage(t, []map[string]interface{}{
				{"id": "111"},
				{"id": "222"},
			}, "bm1"))
		case "/resource/UserPinsResource/get/":
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	e := New(newTestClient(t, server.URL), nil, nil)
	result, err := e.Enumerate(context.Background(), profileURL, 0)

	require.NoError(t, err, "a 403 on the listing means the listing ended, not a failure")
	assert.Len(t, result.PinURLs, 2)
}

func TestEnumerateUnparseableListingEndsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/someuser/":
			fmt.Fprint(w, initialPropsPage(t, []map[string]interface{}{
				{"id": "111"},
			}, "bm1"))
		case "/resource/UserPinsResource/get/":
			fmt.Fprint(w, "<html>not json</html>")
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	e := New(newTestClient(t, server.URL), nil, nil)
	result, err := e.Enumerate(context.Background(), profileURL, 0)

	require.NoError(t, err)
	assert.Len(t, result.PinURLs, 1)
}

func TestEnumerateHTMLFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// No initial-props blob at all; only raw markup with pin links.
		fmt.Fprint(w, `<html><body>
			<a href="/pin/555/">one</a>
			<a href="/pin/666/">two</a>
			<a href="/pin/555/">one again</a>
		</body></html>`)
	}))
	defer server.Close()

	e := New(newTestClient(t, server.URL), nil, nil)
	result, err := e.Enumerate(context.Background(), profileURL, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{
		pinterest.CanonicalPinURL("555"),
		pinterest.CanonicalPinURL("666"),
	}, result.PinURLs)
	assert.Equal(t, 2, result.DiscoveredCount)
}

func TestEnumerateNoPinsIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, "<html><body>nothing here</body></html>")
	}))
	defer server.Close()

	e := New(newTestClient(t, server.URL), nil, nil)
	_, err := e.Enumerate(context.Background(), profileURL, 0)
	assert.Error(t, err)
}

func TestEnumerateRejectsNonProfileURL(t *testing.T) {
	e := New(newTestClient(t, "http://127.0.0.1:0"), nil, nil)

	_, err := e.Enumerate(context.Background(), "https://www.pinterest.com/pin/123/", 0)
	assert.Error(t, err)
}

func TestEnumerateCancelledContextStopsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/someuser/":
			fmt.Fprint(w, initialPropsPage(t, []map[string]interface{}{
				{"id": "111"},
			}, "bm1"))
		case "/resource/UserPinsResource/get/":
			t.Error("pagination must not run once the context is cancelled")
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(newTestClient(t, server.URL), nil, nil)
	result, err := e.Enumerate(ctx, profileURL, 0)

	require.NoError(t, err)
	assert.Len(t, result.PinURLs, 1, "pins already collected are still returned")
}
