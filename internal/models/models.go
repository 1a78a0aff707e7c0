// Package models defines the domain types for Atrium.
package models

import (
	"encoding/json"
	"time"
)

// Project owns a namespace for paths and titles.
type Project struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// File is a Markdown note stored at a logical path inside a project.
type File struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Path         string    `json:"path"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	RenderedHTML string    `json:"rendered_html,omitempty"`
	Tags         []string  `json:"tags"`
	Checksum     string    `json:"checksum"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FileRef is a lightweight file reference used in previews and backlink lists.
type FileRef struct {
	ID    string `json:"file_id"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

// Ref returns the lightweight reference for f.
func (f *File) Ref() FileRef {
	return FileRef{ID: f.ID, Path: f.Path, Title: f.Title}
}

// Directory is an explicitly persisted folder marker.
type Directory struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a directed wikilink edge. TargetFileID is empty when unresolved.
type Link struct {
	ID           int64  `json:"-"`
	ProjectID    string `json:"project_id"`
	SrcFileID    string `json:"src_file_id"`
	SrcPath      string `json:"src_path"`
	TargetTitle  string `json:"target_title"`
	TargetFileID string `json:"target_file_id,omitempty"`
}

// Resolved reports whether the link points at a file.
func (l Link) Resolved() bool { return l.TargetFileID != "" }

// MarshalJSON adds the derived "resolved" flag.
func (l Link) MarshalJSON() ([]byte, error) {
	type plain Link
	return json.Marshal(struct {
		plain
		Resolved bool `json:"resolved"`
	}{plain(l), l.Resolved()})
}

// Node types in a tree listing.
const (
	NodeDir  = "dir"
	NodeFile = "file"
)

// TreeNode is one entry of a project tree listing.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     string      `json:"type"`
	FileID   string      `json:"file_id,omitempty"`
	Title    string      `json:"title,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}
