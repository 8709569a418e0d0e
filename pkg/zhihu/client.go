package zhihu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"zhcrawler/pkg/errors"
	"zhcrawler/pkg/logger"
	"zhcrawler/pkg/session"
)

// ContentType is sent with every listing request
const ContentType = "text/json; charset=UTF-8"

// Client talks to the answer listing API on behalf of one session
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	session    *session.State
	logger     logger.Logger
}

// NewClient creates a new API client bound to state
func NewClient(state *session.State, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if state == nil {
		state = session.New("", "")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		},
		session: state,
		logger:  log,
	}
}

// SetHeader sets a static header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Session returns the session state this client reads and updates
func (c *Client) Session() *session.State {
	return c.session
}

// doRequest performs a GET with the static headers plus the session's
// user agent and, when withCookie is set, its Cookie header
func (c *Client) doRequest(ctx context.Context, rawURL string, withCookie bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeUnknown, 0, "failed to create request")
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if ua := c.session.UserAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if withCookie {
		req.Header.Set("Content-Type", ContentType)
		if cookie := c.session.CurrentCookie(); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, 0, "request failed")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps non-2xx responses to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := errors.FromStatus(resp.StatusCode)
	c.logger.WarnWithFields("unexpected response status", map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
		"type":   string(apiErr.Type),
	})
	return apiErr
}

// FetchPage requests one page of the answer listing. On success the
// response's Set-Cookie headers are merged into the session; on any
// failure the session is left untouched. No retry is attempted.
func (c *Client) FetchPage(ctx context.Context, page Page) (*PageResponse, error) {
	url := page.URL()

	resp, err := c.doRequest(ctx, url, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body")
	}

	var response PageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"offset":       page.Offset,
			"body_preview": preview,
		})
		return nil, errors.Wrap(err, errors.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON")
	}

	c.session.MergeResponseCookies(resp.Header.Values("Set-Cookie"))

	return &response, nil
}

// OpenImage starts downloading an image and returns its body. The caller
// must close it.
func (c *Client) OpenImage(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	resp, err := c.doRequest(ctx, imageURL, false)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}
