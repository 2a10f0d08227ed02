// Package browse is the synchronous query surface over the catalog
// task queue. Every operation is one linear pipeline: resolve the
// backup, build a task descriptor, run it on the queue and project the
// result into the paging envelope.
package browse

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/catalog"
	"github.com/bitshelter/filecatalog/pkg/registry"
	"github.com/bitshelter/filecatalog/pkg/task"
	"github.com/bitshelter/filecatalog/pkg/timeparse"
	"github.com/bitshelter/filecatalog/requests"
	"github.com/bitshelter/filecatalog/responses"
)

const (
	// DefaultPageSize applies when a request carries no page size
	DefaultPageSize = 1000

	settingNoEncryption = "--no-encryption"
)

// epoch is the origin all blank time strings resolve to, meaning the
// state at backup time zero.
var epoch = time.Unix(0, 0).UTC()

type (
	// Browser resolves listing requests against the backup registry and
	// executes them synchronously on the task queue.
	Browser struct {
		l        *zap.Logger
		registry *registry.Registry
		queue    *task.Queue
		now      func() time.Time
	}
	Option func(*Browser)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, reg *registry.Registry, queue *task.Queue, opts ...Option) *Browser {
	inst := &Browser{
		l:        l.Named("browse"),
		registry: reg,
		queue:    queue,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithNow overrides the reference time used for relative time strings
func WithNow(v func() time.Time) Option {
	return func(o *Browser) {
		o.now = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// ListFilesets lists the filesets of a backup, newest first. Queued
// listings must not silently retry - a retry loop would hold the
// calling request open indefinitely - so retries are always disabled.
// Temporary backups have no durable local index, remote listing is
// mandatory for them.
func (b *Browser) ListFilesets(ctx context.Context, r *requests.Filesets) (*responses.Page[catalog.Fileset], error) {
	backup, err := b.resolve(r.BackupID)
	if err != nil {
		return nil, err
	}

	d := task.NewDescriptor(task.KindListFilesets, backup)
	d.Page = 0
	d.PageSize = DefaultPageSize
	d.Options[task.OptionNumberOfRetries] = "0"
	if (r.ForceRemoteListing != nil && *r.ForceRemoteListing) || backup.IsTemporary {
		d.Options[task.OptionNoLocalDB] = "true"
	}

	result, err := b.queue.Submit(ctx, d)
	if err != nil {
		if errors.Is(err, task.ErrRemoteFolderMissing) {
			b.l.Warn("remote folder of backup is missing", zap.String("backup", backup.ID), zap.Error(err))
			return nil, responses.NewUserInformation(
				responses.CodeFolderMissing,
				"the remote folder of the backup does not exist",
				err,
			)
		}
		return nil, err
	}

	filesets, ok := result.(*task.FilesetsResult)
	if !ok {
		return nil, responses.NewServerError("no result from operation")
	}

	if filesets.EncryptedFiles != nil && *filesets.EncryptedFiles {
		if _, found := backup.Setting(settingNoEncryption); found {
			// a setting claiming "no encryption" contradicts an
			// encrypted remote store, almost always a missing passphrase
			b.l.Warn("encrypted remote store without passphrase", zap.String("backup", backup.ID))
			return nil, responses.NewUserInformation(
				responses.CodeEncryptedStorageNoPassphrase,
				"the remote storage is encrypted but no passphrase is configured",
				nil,
			)
		}
	}

	return responses.NewPage(filesets.Filesets, filesets.Page, filesets.PageSize, filesets.TotalCount), nil
}

// ListFolderContent lists the direct children of folders as they were
// at the requested time. A blank time means backup time zero.
func (b *Browser) ListFolderContent(ctx context.Context, r *requests.FolderContent) (*responses.Page[catalog.Entry], error) {
	backup, err := b.resolve(r.BackupID)
	if err != nil {
		return nil, err
	}

	at, err := b.resolveTime(r.Time)
	if err != nil {
		return nil, err
	}

	d := task.NewDescriptor(task.KindListFolder, backup)
	d.Paths = r.Paths
	d.Time = at
	d.Page, d.PageSize = paging(r.Page, r.PageSize)

	result, err := b.queue.Submit(ctx, d)
	if err != nil {
		return nil, err
	}

	folder, ok := result.(*task.FolderResult)
	if !ok {
		return nil, responses.NewServerError("no result from operation")
	}
	return responses.NewPage(folder.Entries, folder.Page, folder.PageSize, folder.TotalCount), nil
}

// ListFileVersions lists every fileset the given paths occur in
func (b *Browser) ListFileVersions(ctx context.Context, r *requests.FileVersions) (*responses.Page[catalog.VersionedEntry], error) {
	backup, err := b.resolve(r.BackupID)
	if err != nil {
		return nil, err
	}

	d := task.NewDescriptor(task.KindListVersions, backup)
	d.Paths = r.Paths
	d.Page, d.PageSize = paging(r.Page, r.PageSize)

	result, err := b.queue.Submit(ctx, d)
	if err != nil {
		return nil, err
	}

	versions, ok := result.(*task.VersionsResult)
	if !ok {
		return nil, responses.NewServerError("no result from operation")
	}
	return responses.NewPage(versions.Entries, versions.Page, versions.PageSize, versions.TotalCount), nil
}

// SearchEntries finds entries matching the filter expressions at the
// requested time, optionally scoped to paths
func (b *Browser) SearchEntries(ctx context.Context, r *requests.Search) (*responses.Page[catalog.VersionedEntry], error) {
	backup, err := b.resolve(r.BackupID)
	if err != nil {
		return nil, err
	}

	at, err := b.resolveTime(r.Time)
	if err != nil {
		return nil, err
	}

	d := task.NewDescriptor(task.KindSearch, backup)
	d.Filters = r.Filters
	d.Paths = r.Paths
	d.Time = at
	d.Page, d.PageSize = paging(r.Page, r.PageSize)

	result, err := b.queue.Submit(ctx, d)
	if err != nil {
		return nil, err
	}

	found, ok := result.(*task.SearchResult)
	if !ok {
		return nil, responses.NewServerError("no result from operation")
	}
	return responses.NewPage(found.Entries, found.Page, found.PageSize, found.TotalCount), nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// resolve looks the backup up before any task is built, so every later
// step can assume a valid handle
func (b *Browser) resolve(backupID string) (*registry.Backup, error) {
	if strings.TrimSpace(backupID) == "" {
		return nil, responses.NewNotFound("no backup id given")
	}
	backup, ok := b.registry.Lookup(backupID)
	if !ok {
		return nil, responses.NewNotFound("unknown backup %q", backupID)
	}
	return backup, nil
}

func (b *Browser) resolveTime(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return epoch, nil
	}
	at, err := timeparse.Parse(s, b.now())
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid time %q", s)
	}
	return at, nil
}

// paging applies the boundary defaults: page 0, page size 1000
func paging(page, pageSize *int) (int, int) {
	p, s := 0, DefaultPageSize
	if page != nil && *page > 0 {
		p = *page
	}
	if pageSize != nil && *pageSize > 0 {
		s = *pageSize
	}
	return p, s
}
