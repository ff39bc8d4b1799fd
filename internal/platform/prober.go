package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// LoginPredicate decides, from a login-check endpoint's JSON body, whether
// the session is authenticated.
type LoginPredicate func(body map[string]any) bool

// FallbackProbe is a platform's secondary login check, typically a fetch of
// an authenticated page.
type FallbackProbe func(ctx context.Context) (bool, error)

// ProbeLogin runs the layered login check shared by every adapter:
//
//  1. credentialed GET of the platform's login-check endpoint; on HTTP
//     success, the platform predicate over the parsed JSON decides, and an
//     unparseable body degrades to "200 means logged in";
//  2. on probe error or non-success, the platform's fallback page fetch;
//  3. if everything raises, assume logged in.
//
// The optimistic default is deliberate: these endpoints are undocumented and
// shift shape, and a false negative here would block a publish that the real
// attempt would have proven valid. ProbeLogin never returns an error.
func ProbeLogin(ctx context.Context, c *Client, d Descriptor, predicate LoginPredicate, fallback FallbackProbe, logger *slog.Logger) bool {
	loggedIn, err := probeAPI(ctx, c, d.LoginCheckURL, predicate)
	if err == nil {
		return loggedIn
	}
	logger.Debug("login check API failed, trying fallback", "platform", d.ID, "error", err)

	if fallback != nil {
		loggedIn, err = fallback(ctx)
		if err == nil {
			return loggedIn
		}
	}

	logger.Warn("login check failed on every probe, assuming logged in", "platform", d.ID, "error", err)
	return true
}

func probeAPI(ctx context.Context, c *Client, checkURL string, predicate LoginPredicate) (bool, error) {
	resp, err := c.Get(ctx, checkURL, http.Header{"Content-Type": []string{"application/json"}})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, &ProbeStatusError{Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		// Not JSON; the status line is all there is to go on.
		return resp.StatusCode == http.StatusOK, nil
	}
	return predicate(body), nil
}

// ProbeStatusError reports a login-check endpoint answering with a
// non-success status.
type ProbeStatusError struct {
	Status int
}

func (e *ProbeStatusError) Error() string {
	return fmt.Sprintf("login check returned status %d", e.Status)
}
