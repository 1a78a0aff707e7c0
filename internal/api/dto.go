package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/search"
	"github.com/starford/atrium/internal/workspace"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name" example:"Handbook"`
	Slug string `json:"slug,omitempty" example:"handbook"`
}

func (r CreateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// CreateFileRequest is the request body for creating a file.
type CreateFileRequest struct {
	Path    string   `json:"path" example:"docs/intro.md"`
	Title   string   `json:"title,omitempty" example:"Intro"`
	Content string   `json:"content" example:"# Intro"`
	Tags    []string `json:"tags,omitempty"`
}

func (r CreateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// UpdateFileRequest is the request body for updating a file. Omitted fields
// are kept.
type UpdateFileRequest struct {
	Content *string  `json:"content,omitempty"`
	Title   *string  `json:"title,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

func (r UpdateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty),
	)
}

// MoveFileRequest is the request body for moving or renaming a file.
type MoveFileRequest struct {
	NewPath     string `json:"new_path,omitempty" example:"archive/intro.md"`
	NewTitle    string `json:"new_title,omitempty" example:"Introduction"`
	UpdateLinks bool   `json:"update_links"`
	DryRun      bool   `json:"dry_run"`
}

func (r MoveFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPath, validation.Required.When(r.NewTitle == "").Error("new_path or new_title is required")),
	)
}

// CreateDirRequest is the request body for creating a directory.
type CreateDirRequest struct {
	Path string `json:"path" example:"docs/guides"`
}

func (r CreateDirRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// MoveDirRequest is the request body for moving or renaming a directory.
type MoveDirRequest struct {
	OldPath string `json:"old_path" example:"docs"`
	NewPath string `json:"new_path" example:"archive/docs"`
	DryRun  bool   `json:"dry_run"`
}

func (r MoveDirRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPath, validation.Required),
		validation.Field(&r.NewPath, validation.Required),
	)
}

// BatchMoveRequest is the request body for a batch move.
type BatchMoveRequest = workspace.BatchMoveRequest

// CreateDirResponse reports the directory and whether it was new.
type CreateDirResponse struct {
	Directory *models.Directory `json:"directory"`
	Created   bool              `json:"created"`
}

// FileListResponse wraps a project's files.
type FileListResponse struct {
	Files []*models.File `json:"files"`
	Total int            `json:"total"`
}

// TreeResponse wraps a project's tree.
type TreeResponse struct {
	Tree []*models.TreeNode `json:"tree"`
}

// LinksResponse wraps the outgoing links of a file.
type LinksResponse struct {
	Links []models.Link `json:"links"`
}

// BacklinksResponse wraps the files linking to a file.
type BacklinksResponse struct {
	Backlinks []models.FileRef `json:"backlinks"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []search.Hit `json:"results"`
}
