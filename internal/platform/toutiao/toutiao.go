// Package toutiao publishes drafts through 今日头条's creator console. The
// console's publish endpoint accepts no cookie auth reachable from a plain
// fetch, so a harvested Cookie header rides on every call, and foreign
// images must be re-uploaded to the platform's own asset store before the
// article body is accepted.
package toutiao

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bianchenglequ/OneClick/internal/domain"
	"github.com/bianchenglequ/OneClick/internal/markdown"
	"github.com/bianchenglequ/OneClick/internal/platform"
)

const (
	defaultHomeURL        = "https://mp.toutiao.com/"
	defaultPublishPageURL = "https://mp.toutiao.com/profile_v4/graphic/publish?from=toutiao_pc"
	defaultUploadURL      = "https://mp.toutiao.com/spice/image"

	uploadParams = "upload_source=20020002&need_enhance=true&aid=1231&device_platform=web&scene=paste"

	titlePlaceholder = "无标题"
)

type Adapter struct {
	client         *platform.Client
	desc           platform.Descriptor
	homeURL        string
	publishPageURL string
	uploadURL      string
	logger         *slog.Logger
}

func New(client *platform.Client, logger *slog.Logger) *Adapter {
	desc, _ := platform.Lookup(platform.Toutiao)
	return &Adapter{
		client:         client,
		desc:           desc,
		homeURL:        defaultHomeURL,
		publishPageURL: defaultPublishPageURL,
		uploadURL:      defaultUploadURL,
		logger:         logger.With("platform", platform.Toutiao),
	}
}

func (a *Adapter) Descriptor() platform.Descriptor { return a.desc }

func (a *Adapter) ProbeLogin(ctx context.Context) bool {
	return platform.ProbeLogin(ctx, a.client, a.desc,
		func(body map[string]any) bool {
			return body["user_info"] != nil
		},
		func(ctx context.Context) (bool, error) {
			resp, err := a.client.Get(ctx, a.homeURL, nil)
			if err != nil {
				return false, err
			}
			defer resp.Body.Close()
			ok := resp.StatusCode >= 200 && resp.StatusCode < 300
			return ok && resp.StatusCode != http.StatusFound, nil
		},
		a.logger,
	)
}

// BuildRequest harvests the session credential first and treats a failed
// harvest as construction being impossible. Article content keeps its rich
// HTML form; every embedded image is re-uploaded to the platform and its
// tag rewritten, with unrecoverable images removed outright rather than
// left broken.
func (a *Adapter) BuildRequest(ctx context.Context, article *domain.Article) (*platform.OutboundRequest, error) {
	harvested, err := a.Harvest(ctx)
	if err != nil {
		return nil, err
	}

	title := article.Title
	if title == "" {
		title = titlePlaceholder
	}

	content := article.Content
	if strings.TrimSpace(content) == "" {
		content = markdown.EmptyPlaceholder
	} else {
		rewritten, stats, err := markdown.RewriteImages(ctx, content, func(ctx context.Context, src string) (string, markdown.ImageAction) {
			assetURL, err := a.uploadImage(ctx, src, harvested)
			if err != nil {
				a.logger.Warn("image upload failed, dropping image", "src", src, "error", err)
				return "", markdown.ImageRemove
			}
			return assetURL, markdown.ImageRewrite
		})
		if err == nil {
			content = rewritten
		}
		a.logger.Info("image upload pass finished", "uploaded", stats.Rewritten, "failed", stats.Failed)
		if strings.TrimSpace(content) == "" {
			content = markdown.EmptyPlaceholder
		}
	}

	extra, _ := json.Marshal(map[string]any{
		"content_source":   100000000402,
		"content_word_cnt": len([]rune(content)),
		"is_multi_title":   0,
		"sub_titles":       []any{},
		"gd_ext": map[string]any{
			"entrance":        "",
			"from_page":       "publisher_mp",
			"enter_from":      "PC",
			"device_platform": "mp",
			"is_message":      0,
		},
		"tuwen_wtt_transfer_switch": "0",
	})

	form := url.Values{}
	form.Set("article_type", "0")
	form.Set("source", "29")
	form.Set("content", content)
	form.Set("title", title)
	form.Set("save", "0") // draft
	form.Set("publish_type", "0")
	form.Set("is_publish", "0")
	form.Set("draft_form_data", `{"coverType":0}`)
	form.Set("pgc_feed_covers", "[]")
	form.Set("extra", string(extra))
	form.Set("search_creation_info", `{"searchTopOne":0,"abstract":"","clue_id":""}`)
	form.Set("title_id", generateTitleID())
	form.Set("mp_editor_stat", "{}")

	header := harvested.Clone()
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("Origin", "")

	return &platform.OutboundRequest{
		URL:    a.desc.PublishURL,
		Method: http.MethodPost,
		Header: header,
		Body:   []byte(form.Encode()),
	}, nil
}

// IsSuccess: the console signals success with a zero return code, under
// either of its two field names.
func (a *Adapter) IsSuccess(body any) bool {
	obj, ok := body.(map[string]any)
	if !ok {
		return false
	}
	return platform.NumberIs(obj, "code", 0) || platform.NumberIs(obj, "err_no", 0)
}

// uploadImage pushes one foreign image URL through the platform's asset
// endpoint and returns the rehosted URL.
func (a *Adapter) uploadImage(ctx context.Context, imageURL string, harvested http.Header) (string, error) {
	form := url.Values{}
	form.Set("imageUrl", imageURL)

	header := harvested.Clone()
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(ctx, &platform.OutboundRequest{
		URL:    a.uploadURL + "?" + uploadParams,
		Method: http.MethodPost,
		Header: header,
		Body:   []byte(form.Encode()),
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("upload status %d", resp.StatusCode)
	}

	obj, ok := resp.Body.(map[string]any)
	if !ok || !platform.NumberIs(obj, "code", 0) {
		return "", fmt.Errorf("upload rejected: %s", platform.FailureMessage(resp.Body, resp.StatusCode))
	}

	data, _ := obj["data"].(map[string]any)
	assetURL, _ := data["image_url"].(string)
	// The endpoint occasionally wraps the URL in backticks.
	assetURL = strings.TrimSpace(strings.ReplaceAll(assetURL, "`", ""))
	if assetURL == "" {
		return "", fmt.Errorf("upload response carried no image URL")
	}
	return assetURL, nil
}

func generateTitleID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + strconv.FormatInt(rand.Int64N(1e16), 10)
}
