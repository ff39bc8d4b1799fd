// Package markdown converts rich HTML article bodies into the Markdown
// dialect the target platforms accept, and rewrites embedded images so the
// output is self-contained.
package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// EmptyPlaceholder is published instead of an empty body; several platforms
// reject zero-length drafts.
const EmptyPlaceholder = "无内容"

var multiNewline = regexp.MustCompile(`\n{3,}`)

// ToMarkdown converts an HTML fragment to Markdown. Empty input yields empty
// output. Block-level elements are rewritten before unknown tags are
// stripped, remaining newlines are normalized so paragraphs are separated by
// exactly one blank line, and the result is trimmed. Applying it twice to
// plain text (no angle brackets) is a no-op.
func ToMarkdown(raw string) string {
	if raw == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	out := renderNode(doc)
	out = multiNewline.ReplaceAllString(out, "\n\n")
	out = promoteSingleNewlines(out)
	out = strings.ReplaceAll(out, " ", " ") // nbsp
	return strings.TrimSpace(out)
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(renderNode(c))
	}
	return b.String()
}

func renderNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.CommentNode, html.DoctypeNode:
		return ""
	case html.ElementNode:
		return renderElement(n)
	default:
		return renderChildren(n)
	}
}

func renderElement(n *html.Node) string {
	switch n.Data {
	case "br":
		return "\n"
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		return strings.Repeat("#", level) + " " + renderChildren(n) + "\n\n"
	case "p":
		return renderChildren(n) + "\n\n"
	case "strong", "b":
		return "**" + renderChildren(n) + "**"
	case "em", "i":
		return "*" + renderChildren(n) + "*"
	case "del":
		return "~~" + renderChildren(n) + "~~"
	case "a":
		return "[" + renderChildren(n) + "](" + attr(n, "href") + ")"
	case "ul":
		return renderList(n, func(int) string { return "- " })
	case "ol":
		return renderList(n, func(i int) string {
			return strconv.Itoa(i) + ". "
		})
	case "pre":
		if code := childElement(n, "code"); code != nil {
			return "```\n" + textContent(code) + "\n```\n\n"
		}
		return renderChildren(n) + "\n\n"
	case "code":
		return "`" + renderChildren(n) + "`"
	case "blockquote":
		return "> " + strings.TrimSpace(renderChildren(n)) + "\n\n"
	case "img":
		return "![" + attr(n, "alt") + "](" + imageSource(n) + ")"
	case "hr":
		return "---\n\n"
	default:
		return renderChildren(n)
	}
}

func renderList(n *html.Node, marker func(int) string) string {
	var b strings.Builder
	item := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		item++
		b.WriteString(marker(item))
		b.WriteString(strings.TrimSpace(renderChildren(c)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// imageSource prefers src over data-src; lazy-load markup keeps the real URL
// in data-src until the page scrolls.
func imageSource(n *html.Node) string {
	if src := attr(n, "src"); src != "" {
		return src
	}
	return attr(n, "data-src")
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func childElement(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// promoteSingleNewlines doubles every newline that is not already part of a
// blank line, so downstream platforms render each line as its own paragraph.
// Runs of two are left alone; longer runs were already collapsed.
func promoteSingleNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\n' {
			b.WriteRune(runes[i])
			continue
		}
		run := 1
		for i+run < len(runes) && runes[i+run] == '\n' {
			run++
		}
		if run == 1 {
			b.WriteString("\n\n")
		} else {
			b.WriteString(strings.Repeat("\n", run))
		}
		i += run - 1
	}
	return b.String()
}
