package markdown

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchFunc downloads one image and reports its content type.
type FetchFunc func(ctx context.Context, url string) (data []byte, contentType string, err error)

// ImageStats counts what happened to the images of one document.
type ImageStats struct {
	Found     int
	Rewritten int
	Failed    int
}

// ImageAction tells RewriteImages what to do with one image tag.
type ImageAction int

const (
	// ImageKeep leaves the tag in place, marked as a failed conversion so a
	// later pass can decide to drop it.
	ImageKeep ImageAction = iota
	// ImageRewrite replaces the tag's src with the returned URL.
	ImageRewrite
	// ImageRemove deletes the tag from the document.
	ImageRemove
)

// ImageRewriter maps one image URL to its replacement and an action.
type ImageRewriter func(ctx context.Context, src string) (string, ImageAction)

// RewriteImages applies fn to every image tag in document order. Images are
// processed one at a time; concurrent fan-out against a platform's image
// hosts trips anti-automation defenses. Tags with no usable source are
// removed.
func RewriteImages(ctx context.Context, rawHTML string, fn ImageRewriter) (string, ImageStats, error) {
	var stats ImageStats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, stats, err
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, _ = sel.Attr("data-src")
		}
		if src == "" {
			sel.Remove()
			stats.Failed++
			return
		}
		stats.Found++

		newSrc, action := fn(ctx, src)
		switch action {
		case ImageRewrite:
			sel.SetAttr("src", newSrc)
			sel.RemoveAttr("data-src")
			stats.Rewritten++
		case ImageRemove:
			sel.Remove()
			stats.Failed++
		default:
			sel.SetAttr("data-inline-failed", "1")
			stats.Failed++
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return rawHTML, stats, err
	}
	return out, stats, nil
}

// InlineImages replaces every image URL with a base64 data URL so the
// document no longer depends on the source platform's image hosting. An
// image whose download fails stays in place as a failed conversion marker.
func InlineImages(ctx context.Context, rawHTML string, fetch FetchFunc) (string, ImageStats, error) {
	return RewriteImages(ctx, rawHTML, func(ctx context.Context, src string) (string, ImageAction) {
		if strings.HasPrefix(src, "data:") {
			return src, ImageRewrite
		}
		data, contentType, err := fetch(ctx, src)
		if err != nil {
			return "", ImageKeep
		}
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), ImageRewrite
	})
}

// ProcessContent runs the full transcoding path for platforms that accept
// only Markdown: inline every image, then convert to Markdown. An empty
// result degrades to the placeholder body.
func ProcessContent(ctx context.Context, rawHTML string, fetch FetchFunc) (string, ImageStats) {
	if strings.TrimSpace(rawHTML) == "" {
		return EmptyPlaceholder, ImageStats{}
	}

	inlined, stats, err := InlineImages(ctx, rawHTML, fetch)
	if err != nil {
		inlined = rawHTML
	}

	md := ToMarkdown(inlined)
	if md == "" {
		return EmptyPlaceholder, stats
	}
	return md, stats
}
