// Package csdn publishes drafts through CSDN's markdown-editor console API.
// The API gates writes behind X-Ca-* request signing; the signing values are
// harvested from the editor page when possible and fall back to the values
// the web editor ships statically.
package csdn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bianchenglequ/OneClick/internal/domain"
	"github.com/bianchenglequ/OneClick/internal/markdown"
	"github.com/bianchenglequ/OneClick/internal/platform"
)

const defaultEditorURL = "https://editor.csdn.net/md"

// Signing headers observed from the stock web editor. Used whenever the
// editor-page harvest yields nothing.
var staticSigningHeaders = map[string]string{
	"x-ca-key":               "203803574",
	"x-ca-nonce":             "ff42a510-aba6-4369-8290-ef38802c776a",
	"x-ca-signature":         "E+bbKANPNt7fnppa17w2DZlKD8s+vHMvHNUM2tuUtuM=",
	"x-ca-signature-headers": "x-ca-key,x-ca-nonce",
}

var harvestedHeaderNames = []string{
	"X-Ca-Key",
	"X-Ca-Timestamp",
	"X-Ca-Signature",
	"X-Ca-Signature-Headers",
	"X-Ca-Nonce",
}

type Adapter struct {
	client    *platform.Client
	desc      platform.Descriptor
	editorURL string
	logger    *slog.Logger
}

func New(client *platform.Client, logger *slog.Logger) *Adapter {
	desc, _ := platform.Lookup(platform.CSDN)
	return &Adapter{
		client:    client,
		desc:      desc,
		editorURL: defaultEditorURL,
		logger:    logger.With("platform", platform.CSDN),
	}
}

func (a *Adapter) Descriptor() platform.Descriptor { return a.desc }

func (a *Adapter) ProbeLogin(ctx context.Context) bool {
	return platform.ProbeLogin(ctx, a.client, a.desc,
		func(body map[string]any) bool {
			status, _ := body["status"].(string)
			return status == "login"
		},
		func(ctx context.Context) (bool, error) {
			resp, err := a.client.Get(ctx, a.editorURL+"/", nil)
			if err != nil {
				return false, err
			}
			defer resp.Body.Close()
			return resp.StatusCode == http.StatusOK, nil
		},
		a.logger,
	)
}

// BuildRequest pre-fetches the editor page to harvest fresh signing headers,
// proceeding with the static set when the fetch fails.
func (a *Adapter) BuildRequest(ctx context.Context, article *domain.Article) (*platform.OutboundRequest, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Referer", a.editorURL+"/")
	header.Set("Origin", "https://editor.csdn.net")
	for k, v := range staticSigningHeaders {
		header.Set(k, v)
	}

	if resp, err := a.client.Get(ctx, a.editorURL, nil); err != nil {
		a.logger.Warn("editor page fetch failed, using static signing headers", "error", err)
	} else {
		for _, name := range harvestedHeaderNames {
			if v := resp.Header.Get(name); v != "" {
				header.Set(name, v)
			}
		}
		resp.Body.Close()
	}

	body := map[string]any{
		"title":               article.Title,
		"markdowncontent":     markdown.ToMarkdown(article.Content),
		"content":             article.Content,
		"readType":            "public",
		"level":               0,
		"tags":                "公众号文章",
		"status":              2, // draft
		"categories":          "",
		"type":                "original",
		"original_link":       "",
		"authorized_status":   false,
		"not_auto_saved":      "1",
		"source":              "pc_mdeditor",
		"cover_images":        []any{},
		"cover_type":          1,
		"is_new":              1,
		"vote_id":             0,
		"resource_id":         "",
		"pubStatus":           "draft",
		"creator_activity_id": "",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal csdn body: %w", err)
	}

	return &platform.OutboundRequest{
		URL:    a.desc.PublishURL,
		Method: http.MethodPost,
		Header: header,
		Body:   payload,
	}, nil
}

// IsSuccess accepts an explicit success flag or the absence of an error
// field; CSDN answers some legitimate saves with an HTML page, so non-JSON
// bodies count as success once HTTP-level checks passed.
func (a *Adapter) IsSuccess(body any) bool {
	obj, ok := body.(map[string]any)
	if !ok {
		return true
	}
	if success, ok := obj["success"].(bool); ok && success {
		return true
	}
	return obj["error"] == nil
}
