package pinterest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"pindl/pkg/config"
	"pindl/pkg/errors"
	"pindl/pkg/logger"
)

// Client is the HTTP session shared by every remote call of one batch. It
// carries a fixed browser-like header set and a cookie jar so the CSRF
// token set by the profile page is available to the paginated listing
// endpoint.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	webBase    string
	apiBase    string
	maxRetries int
	csrf       string
	logger     logger.Logger
}

// NewClient creates a new Pinterest client from the HTTP configuration.
func NewClient(cfg *config.HTTPConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept-Language": cfg.AcceptLanguage,
		},
		webBase:    WebBaseURL,
		apiBase:    APIBaseURL,
		maxRetries: cfg.MaxRetries,
		logger:     log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetWebBase overrides the web-site base URL. Intended for tests.
func (c *Client) SetWebBase(base string) {
	c.webBase = base
}

// SetAPIBase overrides the pidgets API base URL. Intended for tests.
func (c *Client) SetAPIBase(base string) {
	c.apiBase = base
}

// ProfilePageURL returns the fetchable URL of a profile's landing page.
func (c *Client) ProfilePageURL(username string) string {
	return c.webBase + "/" + username + "/"
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	// Remember the CSRF token by name. The jar alone is not enough: a
	// csrftoken scoped to the profile page's path would never be attached
	// to the listing endpoint.
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" && cookie.Value != "" {
			c.csrf = cookie.Value
		}
	}

	return resp, nil
}

// doRequestWithRetry performs an HTTP request, retrying transient failures
// with linear backoff. Only bodyless requests are retried.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WarnWithFields("retrying HTTP request", map[string]interface{}{
				"method":  req.Method,
				"url":     req.URL.String(),
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
			time.Sleep(time.Second * time.Duration(attempt))
		}

		resp, err := c.doRequest(req)
		if err != nil {
			lastErr = err
			if apiErr, ok := err.(*errors.Error); ok && apiErr.Type == errors.ErrorTypeNetwork {
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &errors.Error{
				Type:    errors.ErrorTypeServerError,
				Message: fmt.Sprintf("server returned status %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	c.logger.ErrorWithFields("max retries exceeded", map[string]interface{}{
		"method":      req.Method,
		"url":         req.URL.String(),
		"max_retries": c.maxRetries,
		"last_error":  lastErr.Error(),
	})

	return nil, lastErr
}

// Get performs a GET request with retry for transient failures.
func (c *Client) Get(rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	return c.doRequestWithRetry(req)
}

// FetchPage fetches a page following redirects and returns the final URL
// after redirects together with the body.
func (c *Client) FetchPage(rawURL string) (finalURL string, body []byte, err error) {
	resp, err := c.Get(rawURL)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return "", nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read page body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return resp.Request.URL.String(), data, nil
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(rawURL string, target interface{}) error {
	resp, err := c.Get(rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	return c.decodeJSON(resp, target)
}

// decodeJSON reads a response body and unmarshals it into target.
func (c *Client) decodeJSON(resp *http.Response, target interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.DebugWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          resp.Request.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus maps HTTP status codes to typed errors.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		return &errors.Error{
			Type:    errors.ErrorTypeForbidden,
			Message: "access forbidden",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// FetchPinInfo queries the pidgets pin-info endpoint for a pin ID.
func (c *Client) FetchPinInfo(pinID string) (*PinInfoResponse, error) {
	endpoint := pinInfoURL(c.apiBase, pinID)

	c.logger.DebugWithFields("fetching pin info", map[string]interface{}{
		"pin_id": pinID,
		"url":    endpoint,
	})

	var response PinInfoResponse
	if err := c.GetJSON(endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// FetchOEmbed queries the oEmbed endpoint for a page URL.
func (c *Client) FetchOEmbed(pageURL string) (*OEmbedResponse, error) {
	endpoint := oembedURL(c.webBase, pageURL)

	c.logger.DebugWithFields("fetching oembed data", map[string]interface{}{
		"page_url": pageURL,
		"url":      endpoint,
	})

	var response OEmbedResponse
	if err := c.GetJSON(endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// FetchUserPins requests one page of a profile's pins from the private
// listing endpoint. The endpoint takes a POST whose arguments travel as
// query parameters; the body stays empty. The csrftoken cookie, when the
// profile page has set one, is echoed back as X-CSRFToken.
func (c *Client) FetchUserPins(username, bookmark string) (*UserPinsResponse, error) {
	endpoint := userPinsURL(c.webBase, username, bookmark)

	req, err := http.NewRequest(http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	req.Header.Set("Referer", c.ProfilePageURL(username))
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Pinterest-AppState", "active")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	if csrf := c.csrfToken(); csrf != "" {
		req.Header.Set("X-CSRFToken", csrf)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	var response UserPinsResponse
	if err := c.decodeJSON(resp, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Download performs a single streaming GET for a media URL. No retry: the
// caller treats each candidate as one attempt and moves on to the next
// candidate on failure. The caller owns the response body.
func (c *Client) Download(mediaURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// csrfToken returns the csrftoken the remote site has set, if any. The
// captured value wins; the jar covers tokens set before this session's
// client observed them.
func (c *Client) csrfToken() string {
	if c.csrf != "" {
		return c.csrf
	}
	base, err := url.Parse(c.webBase)
	if err != nil || c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == "csrftoken" {
			return cookie.Value
		}
	}
	return ""
}
