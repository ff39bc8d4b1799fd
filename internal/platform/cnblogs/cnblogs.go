// Package cnblogs saves drafts through 博客园's post-editing API. Writes
// require an anti-forgery token that rotates per session; the token is
// harvested from the edit page through a chain of sources tried in priority
// order.
package cnblogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bianchenglequ/OneClick/internal/domain"
	"github.com/bianchenglequ/OneClick/internal/markdown"
	"github.com/bianchenglequ/OneClick/internal/platform"
)

const (
	defaultEditURL = "https://i.cnblogs.com/posts/edit"
	defaultHomeURL = "https://i.cnblogs.com/"

	excerptRunes = 200
)

var (
	xsrfCookiePattern = regexp.MustCompile(`(?i)XSRF-TOKEN=([^;]+)`)
	xsrfScriptPattern = regexp.MustCompile(`(?i)XSRF-TOKEN\s*=\s*['"]([^'"]+)['"]`)
)

type Adapter struct {
	client  *platform.Client
	desc    platform.Descriptor
	editURL string
	homeURL string
	logger  *slog.Logger
}

func New(client *platform.Client, logger *slog.Logger) *Adapter {
	desc, _ := platform.Lookup(platform.CNBlogs)
	return &Adapter{
		client:  client,
		desc:    desc,
		editURL: defaultEditURL,
		homeURL: defaultHomeURL,
		logger:  logger.With("platform", platform.CNBlogs),
	}
}

func (a *Adapter) Descriptor() platform.Descriptor { return a.desc }

func (a *Adapter) ProbeLogin(ctx context.Context) bool {
	return platform.ProbeLogin(ctx, a.client, a.desc,
		func(body map[string]any) bool {
			loggedIn, _ := body["IsLogin"].(bool)
			return loggedIn
		},
		func(ctx context.Context) (bool, error) {
			resp, err := a.client.Get(ctx, a.homeURL, nil)
			if err != nil {
				return false, err
			}
			defer resp.Body.Close()
			return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
		},
		a.logger,
	)
}

func (a *Adapter) BuildRequest(ctx context.Context, article *domain.Article) (*platform.OutboundRequest, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("Referer", a.editURL)
	header.Set("Origin", "https://i.cnblogs.com")

	if token := a.harvestToken(ctx); token != "" {
		header.Set("x-xsrf-token", token)
	} else {
		a.logger.Warn("no XSRF token recovered, submitting without one")
	}

	content := markdown.ToMarkdown(article.Content)

	body := postModel{
		PostType:                 1,
		Title:                    article.Title,
		PostBody:                 content,
		CollectionIDs:            []int64{},
		DisplayOnHomePage:        true,
		IsAllowComments:          true,
		IncludeInMainSyndication: true,
		Description:              excerpt(content),
		DatePublished:            time.Now().Format(time.RFC3339),
		IsMarkdown:               true,
		IsDraft:                  true,
		UsingEditorID:            6, // markdown editor
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal cnblogs body: %w", err)
	}

	return &platform.OutboundRequest{
		URL:    a.desc.PublishURL,
		Method: http.MethodPost,
		Header: header,
		Body:   payload,
	}, nil
}

// IsSuccess: a saved post echoes back with an id. Redirect responses with
// non-JSON bodies accompany legitimate saves, so those pass too.
func (a *Adapter) IsSuccess(body any) bool {
	obj, ok := body.(map[string]any)
	if !ok {
		return true
	}
	return obj["id"] != nil
}

// harvestToken recovers the anti-forgery token from the edit page: the
// XSRF-TOKEN Set-Cookie entry, then a meta tag, then an inline script
// variable, and finally the cookie jar. First hit wins.
func (a *Adapter) harvestToken(ctx context.Context) string {
	resp, err := a.client.Get(ctx, a.editURL, nil)
	if err != nil {
		a.logger.Warn("edit page fetch failed", "error", err)
		return a.jarToken()
	}
	defer resp.Body.Close()

	for _, setCookie := range resp.Header.Values("Set-Cookie") {
		if m := xsrfCookiePattern.FindStringSubmatch(setCookie); m != nil {
			if token, err := url.QueryUnescape(m[1]); err == nil {
				return token
			}
			return m[1]
		}
	}

	if resp.StatusCode == http.StatusOK {
		page, err := io.ReadAll(resp.Body)
		if err == nil {
			if token := pageToken(string(page)); token != "" {
				return token
			}
		}
	}

	return a.jarToken()
}

func pageToken(page string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		if content, ok := doc.Find(`meta[name="XSRF-TOKEN"]`).Attr("content"); ok && content != "" {
			return content
		}
	}
	if m := xsrfScriptPattern.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	return ""
}

func (a *Adapter) jarToken() string {
	for _, c := range a.client.Cookies(a.homeURL) {
		if strings.EqualFold(c.Name, "XSRF-TOKEN") {
			if token, err := url.QueryUnescape(c.Value); err == nil {
				return token
			}
			return c.Value
		}
	}
	return ""
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptRunes {
		return content + "..."
	}
	return string(runes[:excerptRunes]) + "..."
}

// postModel mirrors the platform's internal post-editing payload. Most
// fields stay at their zero value; the platform requires them to be present
// rather than meaningful.
type postModel struct {
	ID                                  *int64   `json:"id"`
	PostType                            int      `json:"postType"`
	AccessPermission                    int      `json:"accessPermission"`
	Title                               string   `json:"title"`
	URL                                 *string  `json:"url"`
	PostBody                            string   `json:"postBody"`
	CategoryIDs                         []int64  `json:"categoryIds"`
	Categories                          *string  `json:"categories"`
	CollectionIDs                       []int64  `json:"collectionIds"`
	InSiteCandidate                     bool     `json:"inSiteCandidate"`
	InSiteHome                          bool     `json:"inSiteHome"`
	SiteCategoryID                      *int64   `json:"siteCategoryId"`
	BlogTeamIDs                         []int64  `json:"blogTeamIds"`
	IsPublished                         bool     `json:"isPublished"`
	DisplayOnHomePage                   bool     `json:"displayOnHomePage"`
	IsAllowComments                     bool     `json:"isAllowComments"`
	IncludeInMainSyndication            bool     `json:"includeInMainSyndication"`
	IsPinned                            bool     `json:"isPinned"`
	ShowBodyWhenPinned                  bool     `json:"showBodyWhenPinned"`
	IsOnlyForRegisterUser               bool     `json:"isOnlyForRegisterUser"`
	IsUpdateDateAdded                   bool     `json:"isUpdateDateAdded"`
	EntryName                           *string  `json:"entryName"`
	Description                         string   `json:"description"`
	FeaturedImage                       *string  `json:"featuredImage"`
	Tags                                []string `json:"tags"`
	Password                            *string  `json:"password"`
	PublishAt                           *string  `json:"publishAt"`
	DatePublished                       string   `json:"datePublished"`
	DateUpdated                         *string  `json:"dateUpdated"`
	IsMarkdown                          bool     `json:"isMarkdown"`
	IsDraft                             bool     `json:"isDraft"`
	AutoDesc                            *string  `json:"autoDesc"`
	ChangePostType                      bool     `json:"changePostType"`
	BlogID                              int64    `json:"blogId"`
	Author                              *string  `json:"author"`
	RemoveScript                        bool     `json:"removeScript"`
	ClientInfo                          *string  `json:"clientInfo"`
	ChangeCreatedTime                   bool     `json:"changeCreatedTime"`
	CanChangeCreatedTime                bool     `json:"canChangeCreatedTime"`
	IsContributeToImpressiveBugActivity bool     `json:"isContributeToImpressiveBugActivity"`
	UsingEditorID                       int      `json:"usingEditorId"`
	SourceURL                           *string  `json:"sourceUrl"`
}
