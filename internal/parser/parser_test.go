package parser

import (
	"reflect"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	r := Parse("---\ntitle: Hello\ntags:\n  - go\n  - atrium\n---\n# Hello\nBody text.\n")
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "atrium" {
		t.Errorf("tags = %v, want [go atrium]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse("# Just a heading\nSome text.\n")
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r := Parse("---\n: invalid: yaml: {{{\n---\nBody\n")
	// Invalid YAML falls back to treating everything as body.
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestExtractWikilinks_OrderAndDuplicates(t *testing.T) {
	got := ExtractWikilinks("See [[Note A]] and [[ Note B ]].\nAlso [[Note A]] again.")
	want := []string{"Note A", "Note B", "Note A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("links = %v, want %v", got, want)
	}
}

func TestExtractWikilinks_BlankAndNested(t *testing.T) {
	got := ExtractWikilinks("see [[ ]] and [[[[Inner]]]] and [[a]b]] and [[]]")
	if !reflect.DeepEqual(got, []string{"", "Inner"}) {
		t.Errorf("links = %q, want [\"\" Inner]", got)
	}
}

func TestExtractWikilinks_Pure(t *testing.T) {
	text := "[[One]] [[Two]] [[One]]"
	first := ExtractWikilinks(text)
	second := ExtractWikilinks(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not repeatable: %v vs %v", first, second)
	}
}

func TestRewriteWikilinks_ExactTitleOnly(t *testing.T) {
	out, n := RewriteWikilinks("See [[Plan]] for details", "Plan", "Roadmap")
	if out != "See [[Roadmap]] for details" || n != 1 {
		t.Errorf("got %q (%d)", out, n)
	}
	out, n = RewriteWikilinks("See [[Plan B]]", "Plan", "Roadmap")
	if out != "See [[Plan B]]" || n != 0 {
		t.Errorf("substring title rewritten: %q (%d)", out, n)
	}
}

func TestRewriteWikilinks_AllOccurrences(t *testing.T) {
	out, n := RewriteWikilinks("[[Guide]] then [[Guide]]", "Guide", "Handbook")
	if out != "[[Handbook]] then [[Handbook]]" || n != 2 {
		t.Errorf("got %q (%d)", out, n)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	tags := extractTags("Some text #beta and #alpha again.", fm)
	// alpha from FM, beta from body; alpha not duplicated.
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(map[string]any{"title": "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestMergeTags(t *testing.T) {
	got := MergeTags([]string{"a", "b"}, []string{"b", " c ", ""})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("got %v", got)
	}
}
