// Package render turns Markdown into the HTML copy stored next to each file.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts Markdown source to HTML.
type Renderer interface {
	Render(markdown string) (string, error)
}

// Markdown is a goldmark-backed Renderer with GFM tables and strikethrough.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates the default renderer.
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

// Render converts markdown to HTML.
func (m *Markdown) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return buf.String(), nil
}
