// Package document reduces markdown to the plain text that is read aloud.
// Formatting is dropped, code and HTML are skipped, and headings and list
// items end with a period so they are spoken as sentences of their own.
package document

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Extractor converts markdown into speakable plain text.
type Extractor struct {
	md          goldmark.Markdown
	includeCode bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCode keeps code blocks verbatim instead of skipping them.
func WithCode() Option {
	return func(e *Extractor) { e.includeCode = true }
}

// New creates an extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{md: goldmark.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlainText extracts markdown with the default options.
func PlainText(markdown string) string {
	return New().Extract(markdown)
}

// Extract returns the text of every block, separated by blank lines.
func (e *Extractor) Extract(markdown string) string {
	source := []byte(markdown)
	doc := e.md.Parser().Parse(text.NewReader(source))

	var blocks []string
	e.blocks(doc, source, &blocks)
	return strings.Join(blocks, "\n\n")
}

func (e *Extractor) blocks(n ast.Node, source []byte, out *[]string) {
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			*out = append(*out, s)
		}
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Heading:
			add(terminate(e.inlineText(c, source)))

		case *ast.Paragraph, *ast.TextBlock:
			add(e.inlineText(c, source))

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if e.includeCode {
				add(codeText(c, source))
			}

		case *ast.HTMLBlock, *ast.ThematicBreak:

		case *ast.ListItem:
			var item []string
			e.blocks(c, source, &item)
			for _, s := range item {
				add(terminate(s))
			}

		default:
			e.blocks(c, source, out)
		}
	}
}

func (e *Extractor) inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	e.inline(n, source, &b)
	return b.String()
}

func (e *Extractor) inline(n ast.Node, source []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
			switch {
			case c.HardLineBreak():
				b.WriteByte('\n')
			case c.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.AutoLink:
			b.Write(c.Label(source))
		case *ast.RawHTML:
		default:
			// Links, images (alt text), emphasis and code spans.
			e.inline(c, source, b)
		}
	}
}

func codeText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// terminate ends s with a period unless it already ends a sentence.
func terminate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch r, _ := utf8.DecodeLastRuneInString(s); r {
	case '.', '!', '?', ':', ';':
		return s
	}
	return s + "."
}
