package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMarkdown_Empty(t *testing.T) {
	assert.Equal(t, "", ToMarkdown(""))
}

func TestToMarkdown_HeadingsAndParagraphs(t *testing.T) {
	got := ToMarkdown("<h1>标题</h1><p>第一段</p><p>第二段</p>")
	assert.Equal(t, "# 标题\n\n第一段\n\n第二段", got)
}

func TestToMarkdown_AllHeadingLevels(t *testing.T) {
	got := ToMarkdown("<h2>a</h2><h3>b</h3><h6>c</h6>")
	assert.Equal(t, "## a\n\n### b\n\n###### c", got)
}

func TestToMarkdown_InlineFormatting(t *testing.T) {
	got := ToMarkdown(`<p><strong>粗体</strong> and <em>italic</em> and <del>gone</del></p>`)
	assert.Equal(t, "**粗体** and *italic* and ~~gone~~", got)

	got = ToMarkdown(`<p><b>bold</b> <i>it</i></p>`)
	assert.Equal(t, "**bold** *it*", got)
}

func TestToMarkdown_Links(t *testing.T) {
	got := ToMarkdown(`<p>see <a href="https://example.com">here</a></p>`)
	assert.Equal(t, "see [here](https://example.com)", got)
}

func TestToMarkdown_Lists(t *testing.T) {
	got := ToMarkdown("<ul><li>one</li><li>two</li></ul>")
	assert.Equal(t, "- one\n\n- two", got)

	got = ToMarkdown("<ol><li>first</li><li>second</li><li>third</li></ol>")
	assert.Contains(t, got, "1. first")
	assert.Contains(t, got, "2. second")
	assert.Contains(t, got, "3. third")
}

func TestToMarkdown_CodeBlocks(t *testing.T) {
	got := ToMarkdown("<pre><code>fmt.Println(1)</code></pre>")
	assert.Equal(t, "```\nfmt.Println(1)\n```", got)

	got = ToMarkdown("<p>use <code>go build</code></p>")
	assert.Equal(t, "use `go build`", got)
}

func TestToMarkdown_Blockquote(t *testing.T) {
	got := ToMarkdown("<blockquote>引用内容</blockquote>")
	assert.Equal(t, "> 引用内容", got)
}

func TestToMarkdown_Images(t *testing.T) {
	got := ToMarkdown(`<img src="https://example.com/a.png" alt="图">`)
	assert.Equal(t, "![图](https://example.com/a.png)", got)

	// Lazy-load markup keeps the real URL in data-src.
	got = ToMarkdown(`<img data-src="https://example.com/lazy.png">`)
	assert.Equal(t, "![](https://example.com/lazy.png)", got)

	got = ToMarkdown(`<img src="https://example.com/real.png" data-src="https://example.com/placeholder.png">`)
	assert.Equal(t, "![](https://example.com/real.png)", got)
}

func TestToMarkdown_HorizontalRule(t *testing.T) {
	got := ToMarkdown("<p>a</p><hr><p>b</p>")
	assert.Equal(t, "a\n\n---\n\nb", got)
}

func TestToMarkdown_LineBreaksBecomeParagraphs(t *testing.T) {
	got := ToMarkdown("line one<br>line two")
	assert.Equal(t, "line one\n\nline two", got)
}

func TestToMarkdown_UnknownTagsAreStripped(t *testing.T) {
	got := ToMarkdown(`<div><span>kept text</span></div>`)
	assert.Equal(t, "kept text", got)
}

func TestToMarkdown_EntitiesAndNbsp(t *testing.T) {
	got := ToMarkdown("<p>a&nbsp;b &amp; c &lt;d&gt;</p>")
	assert.Equal(t, "a b & c <d>", got)
}

func TestToMarkdown_CollapsesExcessBlankLines(t *testing.T) {
	got := ToMarkdown("<p>a</p>\n\n\n\n<p>b</p>")
	assert.Equal(t, "a\n\nb", got)
}

func TestToMarkdown_PlainTextIdempotent(t *testing.T) {
	input := "已经是 Markdown 的文本"
	once := ToMarkdown(input)
	assert.Equal(t, input, once)
	assert.Equal(t, once, ToMarkdown(once))
}

func TestToMarkdown_NestedStructures(t *testing.T) {
	got := ToMarkdown(`<blockquote><strong>note</strong>: careful</blockquote>`)
	assert.Equal(t, "> **note**: careful", got)
}
