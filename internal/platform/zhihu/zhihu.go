// Package zhihu saves column-article drafts through 知乎's draft API. The
// platform hosts no foreign images, so the full image-inlining transcoding
// path runs before submission.
package zhihu

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bianchenglequ/OneClick/internal/domain"
	"github.com/bianchenglequ/OneClick/internal/markdown"
	"github.com/bianchenglequ/OneClick/internal/platform"
)

const (
	defaultWriteURL = "https://zhuanlan.zhihu.com/write"

	// Fixed topic the web editor tags technical drafts with.
	techTopicID = 19552667

	excerptRunes = 200
)

type Adapter struct {
	client   *platform.Client
	desc     platform.Descriptor
	writeURL string
	logger   *slog.Logger
}

func New(client *platform.Client, logger *slog.Logger) *Adapter {
	desc, _ := platform.Lookup(platform.Zhihu)
	return &Adapter{
		client:   client,
		desc:     desc,
		writeURL: defaultWriteURL,
		logger:   logger.With("platform", platform.Zhihu),
	}
}

func (a *Adapter) Descriptor() platform.Descriptor { return a.desc }

func (a *Adapter) ProbeLogin(ctx context.Context) bool {
	return platform.ProbeLogin(ctx, a.client, a.desc,
		func(body map[string]any) bool {
			return body["id"] != nil
		},
		func(ctx context.Context) (bool, error) {
			resp, err := a.client.Get(ctx, a.writeURL, nil)
			if err != nil {
				return false, err
			}
			defer resp.Body.Close()
			ok := resp.StatusCode >= 200 && resp.StatusCode < 300
			return ok && resp.StatusCode != http.StatusForbidden, nil
		},
		a.logger,
	)
}

func (a *Adapter) BuildRequest(ctx context.Context, article *domain.Article) (*platform.OutboundRequest, error) {
	content, stats := markdown.ProcessContent(ctx, article.Content, a.client.FetchBytes)
	if stats.Failed > 0 {
		a.logger.Warn("some images could not be inlined", "failed", stats.Failed, "inlined", stats.Rewritten)
	}

	header := http.Header{}
	header.Set("Referer", a.writeURL)

	return &platform.OutboundRequest{
		URL:    a.desc.PublishURL,
		Method: http.MethodPost,
		Header: header,
		JSONBody: map[string]any{
			"title":   article.Title,
			"content": content,
			"excerpt": excerpt(content),
			"topics":  []int64{techTopicID},
			"column":  nil,
			"draft":   true,
		},
	}, nil
}

// IsSuccess: a created draft always carries its id.
func (a *Adapter) IsSuccess(body any) bool {
	obj, ok := body.(map[string]any)
	if !ok {
		return false
	}
	return obj["id"] != nil
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptRunes {
		return content + "..."
	}
	return string(runes[:excerptRunes]) + "..."
}
