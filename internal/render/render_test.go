package render

import (
	"strings"
	"testing"
)

func TestRender_Heading(t *testing.T) {
	html, err := NewMarkdown().Render("# Title\n\nbody")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, "<h1>Title</h1>") {
		t.Errorf("html = %q", html)
	}
}

func TestRender_TableAndStrikethrough(t *testing.T) {
	src := "| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n"
	html, err := NewMarkdown().Render(src)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("missing table in %q", html)
	}
	if !strings.Contains(html, "<del>gone</del>") {
		t.Errorf("missing strikethrough in %q", html)
	}
}
