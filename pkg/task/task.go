// Package task describes units of work against a backup's file catalog
// and the single-flight queue they are executed on.
package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bitshelter/filecatalog/pkg/registry"
	"github.com/bitshelter/filecatalog/requests"
)

// Kind of catalog task
type Kind string

const (
	// KindListFilesets list the filesets of a backup
	KindListFilesets Kind = "listFilesets"
	// KindListFolder list folder contents at a point in time
	KindListFolder Kind = "listFolder"
	// KindListVersions list the filesets a path occurs in
	KindListVersions Kind = "listVersions"
	// KindSearch search entries by filter expressions
	KindSearch Kind = "search"
)

// Option override keys understood by the engine
const (
	// OptionNumberOfRetries extra attempts for remote listings, "0"
	// disables retrying entirely
	OptionNumberOfRetries = "number-of-retries"
	// OptionNoLocalDB forces remote listing, bypassing the local
	// fileset index
	OptionNoLocalDB = "no-local-db"
)

// Descriptor one fully parameterized unit of work. Built once per
// request and never mutated after submission.
type Descriptor struct {
	ID       uuid.UUID
	Kind     Kind
	Backup   *registry.Backup
	Paths    []string
	Filters  []requests.Filter
	Time     time.Time
	Page     int
	PageSize int
	Options  map[string]string
}

// NewDescriptor descriptor constructor, assigns the task id
func NewDescriptor(kind Kind, backup *registry.Backup) *Descriptor {
	return &Descriptor{
		ID:      uuid.New(),
		Kind:    kind,
		Backup:  backup,
		Options: map[string]string{},
	}
}

// Executor runs one descriptor against a backup's catalog. The engine
// implements this, tests stub it.
type Executor interface {
	Execute(ctx context.Context, d *Descriptor) (Result, error)
}
