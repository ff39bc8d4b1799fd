package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// UserAgent is sent on every outbound request. The platforms reject or
// degrade requests from non-browser agents.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// Client is the shared credentialed HTTP client every adapter dispatches
// through. It carries a cookie jar seeded from configuration and never
// forwards Referer across redirects; several platforms treat a foreign
// referrer as a bot signal.
type Client struct {
	http   *http.Client
	jar    http.CookieJar
	logger *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				req.Header.Del("Referer")
				return nil
			},
		},
		jar:    jar,
		logger: logger,
	}, nil
}

// SeedCookies loads a raw "name=value; name2=value2" cookie string, as
// exported from a logged-in browser session, into the jar for rawURL's
// domain.
func (c *Client) SeedCookies(rawURL, cookieHeader string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse cookie scope %q: %w", rawURL, err)
	}

	var cookies []*http.Cookie
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	if len(cookies) == 0 {
		return nil
	}

	c.jar.SetCookies(u, cookies)
	return nil
}

// Cookies returns the jar's cookies for rawURL, in jar order.
func (c *Client) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// Get performs a credentialed GET with the standard browser headers. extra
// headers override the defaults.
func (c *Client) Get(ctx context.Context, rawURL string, extra http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range extra {
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}
	return c.http.Do(req)
}

// FetchBytes downloads a resource (typically an image) and reports its
// content type.
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Response is one parsed platform response. Body holds the decoded JSON
// value when the payload parses as JSON, otherwise the raw text.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       any
	Raw        string
}

// OK reports HTTP-level success.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do dispatches one outbound request and parses the response body. The
// caller bounds the attempt through ctx.
func (c *Client) Do(ctx context.Context, req *OutboundRequest) (*Response, error) {
	payload, err := req.Payload()
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", UserAgent)
	if req.JSONBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(k)] = vs
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       parseBody(resp.Header.Get("Content-Type"), raw),
		Raw:        string(raw),
	}, nil
}

// parseBody decodes JSON payloads. Some platforms serve JSON with a text
// content type, so anything shaped like JSON gets a decode attempt; bodies
// that fail stay text.
func parseBody(contentType string, raw []byte) any {
	trimmed := strings.TrimSpace(string(raw))
	looksJSON := strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
	if strings.Contains(contentType, "application/json") || looksJSON {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return string(raw)
}
