package toutiao

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// cookie scopes checked in strategy one: the console host itself, then the
// parent-domain cookies shared across 头条 properties.
var cookieScopes = []string{
	"https://mp.toutiao.com",
	"https://toutiao.com",
}

// Harvest recovers the session credential material the publish endpoint
// needs. The endpoint exposes no usable auth surface of its own, so the
// cookies are read from the jar first and, if the jar is empty, scraped
// from a credentialed fetch of the publish page. A nil result means
// publishing is impossible; callers must not retry.
func (a *Adapter) Harvest(ctx context.Context) (http.Header, error) {
	cookie := a.jarCookies()
	if cookie == "" {
		var err error
		cookie, err = a.pageCookies(ctx)
		if err != nil {
			return nil, fmt.Errorf("harvest cookies: %w", err)
		}
	}
	if cookie == "" {
		return nil, fmt.Errorf("no session cookies recoverable for %s", a.desc.Name)
	}

	header := http.Header{}
	header.Set("Cookie", cookie)
	return header, nil
}

// jarCookies merges both scopes, de-duplicated by name with the first
// occurrence winning, into a Cookie header value.
func (a *Adapter) jarCookies() string {
	seen := make(map[string]bool)
	var pairs []string
	for _, scope := range cookieScopes {
		for _, c := range a.client.Cookies(scope) {
			if seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			pairs = append(pairs, c.Name+"="+c.Value)
		}
	}
	return strings.Join(pairs, "; ")
}

func (a *Adapter) pageCookies(ctx context.Context) (string, error) {
	resp, err := a.client.Get(ctx, a.publishPageURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var pairs []string
	for _, setCookie := range resp.Header.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(setCookie, ";")
		if pair = strings.TrimSpace(pair); pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return strings.Join(pairs, "; "), nil
}
