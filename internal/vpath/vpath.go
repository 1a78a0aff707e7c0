// Package vpath normalizes logical workspace paths and implements the
// prefix-closed rules used by directory moves and deletes.
package vpath

import (
	"strings"

	"github.com/starford/atrium/internal/apperr"
)

// Normalize splits raw on "/", drops empty segments and rejects anything that
// could escape the project root. The result never starts or ends with "/".
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(strings.Trim(raw, "/")) == "" {
		return "", apperr.BadPath("path required")
	}
	if strings.ContainsAny(raw, `\:`) || strings.ContainsRune(raw, 0) {
		return "", apperr.BadPath("invalid characters in %q", raw)
	}
	parts := strings.Split(raw, "/")
	segs := parts[:0]
	for _, seg := range parts {
		switch seg {
		case "":
			continue
		case ".", "..":
			return "", apperr.BadPath("invalid segment %q in %q", seg, raw)
		}
		if strings.TrimSpace(seg) == "" {
			return "", apperr.BadPath("blank segment in %q", raw)
		}
		segs = append(segs, seg)
	}
	return strings.Join(segs, "/"), nil
}

// Under reports whether p equals prefix or is nested below it.
func Under(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// StrictlyUnder reports whether p is nested below prefix but not equal to it.
func StrictlyUnder(p, prefix string) bool {
	return strings.HasPrefix(p, prefix+"/")
}

// Rebase moves p from oldPrefix to newPrefix, keeping the relative suffix.
// The caller must ensure Under(p, oldPrefix).
func Rebase(p, oldPrefix, newPrefix string) string {
	suffix := strings.TrimPrefix(strings.TrimPrefix(p, oldPrefix), "/")
	if suffix == "" {
		return newPrefix
	}
	return newPrefix + "/" + suffix
}

// Base returns the last segment of p.
func Base(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns everything before the last segment, or "" for top-level paths.
func Dir(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

// Ancestors returns every proper ancestor directory of p, shallowest first.
func Ancestors(p string) []string {
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}
