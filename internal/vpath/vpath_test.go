package vpath

import (
	"errors"
	"testing"

	"github.com/starford/atrium/internal/apperr"
)

func TestNormalize_DropsEmptySegments(t *testing.T) {
	got, err := Normalize("/docs//guides/intro.md/")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "docs/guides/intro.md" {
		t.Errorf("got %q", got)
	}
}

func TestNormalize_Rejects(t *testing.T) {
	cases := []string{
		"",
		"/",
		"  ",
		"../etc/passwd",
		"a/../b",
		"a/./b",
		`a\b`,
		"C:/windows",
		"a/ /b",
	}
	for _, c := range cases {
		if _, err := Normalize(c); !errors.Is(err, apperr.ErrBadPath) {
			t.Errorf("Normalize(%q) err = %v, want ErrBadPath", c, err)
		}
	}
}

func TestUnder(t *testing.T) {
	if !Under("a/b", "a/b") {
		t.Error("equal path should be under")
	}
	if !Under("a/b/c/d.md", "a/b") {
		t.Error("nested path should be under")
	}
	if Under("a/bc.md", "a/b") {
		t.Error("sibling with shared prefix must not be under")
	}
	if StrictlyUnder("a/b", "a/b") {
		t.Error("equal path is not strictly under")
	}
}

func TestRebase_PreservesSuffix(t *testing.T) {
	if got := Rebase("a/b/c/d.md", "a/b", "x/y"); got != "x/y/c/d.md" {
		t.Errorf("got %q", got)
	}
	if got := Rebase("a/b", "a/b", "x/y"); got != "x/y" {
		t.Errorf("got %q", got)
	}
}

func TestAncestors(t *testing.T) {
	got := Ancestors("a/b/c.md")
	if len(got) != 2 || got[0] != "a" || got[1] != "a/b" {
		t.Errorf("got %v", got)
	}
	if len(Ancestors("top.md")) != 0 {
		t.Error("top-level path has no ancestors")
	}
}

func TestBaseDir(t *testing.T) {
	if Base("a/b/c.md") != "c.md" || Dir("a/b/c.md") != "a/b" {
		t.Error("base/dir mismatch")
	}
	if Base("c.md") != "c.md" || Dir("c.md") != "" {
		t.Error("top-level base/dir mismatch")
	}
}
