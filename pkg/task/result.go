package task

import (
	"github.com/bitshelter/filecatalog/catalog"
)

// Result is the closed union of task outcomes, one variant per kind.
// The projection layer matches on the concrete type and treats any
// mismatch as an internal contract violation.
type Result interface {
	Kind() Kind
}

// FilesetsResult one page of fileset metadata
type FilesetsResult struct {
	Filesets   []catalog.Fileset
	Page       int
	PageSize   int
	TotalCount int64
	// set when the remote store was observed, nil when the listing came
	// from the local index
	EncryptedFiles *bool
}

func (r *FilesetsResult) Kind() Kind { return KindListFilesets }

// FolderResult one page of folder children
type FolderResult struct {
	Entries    []catalog.Entry
	Page       int
	PageSize   int
	TotalCount int64
}

func (r *FolderResult) Kind() Kind { return KindListFolder }

// VersionsResult one page of per-fileset path occurrences
type VersionsResult struct {
	Entries    []catalog.VersionedEntry
	Page       int
	PageSize   int
	TotalCount int64
}

func (r *VersionsResult) Kind() Kind { return KindListVersions }

// SearchResult one page of matched entries
type SearchResult struct {
	Entries    []catalog.VersionedEntry
	Page       int
	PageSize   int
	TotalCount int64
}

func (r *SearchResult) Kind() Kind { return KindSearch }
