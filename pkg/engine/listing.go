package engine

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bitshelter/filecatalog/catalog"
	"github.com/bitshelter/filecatalog/pkg/metrics"
	"github.com/bitshelter/filecatalog/pkg/task"
	"github.com/bitshelter/filecatalog/requests"
)

// indexDocument is the cached fileset metadata of one backup
type indexDocument struct {
	Filesets  []catalog.Fileset `json:"filesets"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func indexKey(backupID string) string {
	return backupID + ".json"
}

// ------------------------------------------------------------------------------------------------
// ~ List filesets
// ------------------------------------------------------------------------------------------------

func (e *Engine) listFilesets(ctx context.Context, d *task.Descriptor) (task.Result, error) {
	if !noLocalDBFromOptions(d) && e.index != nil {
		if filesets, ok := e.readIndex(ctx, d.Backup.ID); ok {
			page, total := pageWindow(filesets, d.Page, d.PageSize)
			return &task.FilesetsResult{
				Filesets:   page,
				Page:       d.Page,
				PageSize:   d.PageSize,
				TotalCount: total,
			}, nil
		}
	}

	storage, err := e.storage(ctx, d.Backup)
	if err != nil {
		return nil, err
	}

	keys, err := e.listRemoteKeys(ctx, storage, retriesFromOptions(d))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(task.ErrRemoteFolderMissing, "target %q of backup %q", d.Backup.TargetURL, d.Backup.ID)
		}
		return nil, errors.Wrapf(err, "failed to list target of backup %q", d.Backup.ID)
	}

	encrypted := false
	for _, key := range keys {
		if strings.HasSuffix(key, encryptedKeySuffix) {
			encrypted = true
			break
		}
	}

	docs, err := e.loadDocuments(ctx, storage, keys)
	if err != nil {
		return nil, err
	}

	filesets := make([]catalog.Fileset, 0, len(docs))
	for _, doc := range docs {
		filesets = append(filesets, doc.Fileset())
	}

	if !noLocalDBFromOptions(d) && e.index != nil {
		e.refreshIndex(ctx, d.Backup.ID, filesets)
	}

	page, total := pageWindow(filesets, d.Page, d.PageSize)
	return &task.FilesetsResult{
		Filesets:       page,
		Page:           d.Page,
		PageSize:       d.PageSize,
		TotalCount:     total,
		EncryptedFiles: &encrypted,
	}, nil
}

func (e *Engine) readIndex(ctx context.Context, backupID string) ([]catalog.Fileset, bool) {
	data, err := e.index.Read(ctx, indexKey(backupID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.l.Warn("failed to read fileset index", zap.String("backup", backupID), zap.Error(err))
		}
		return nil, false
	}
	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		e.l.Warn("failed to parse fileset index", zap.String("backup", backupID), zap.Error(err))
		return nil, false
	}
	return doc.Filesets, true
}

func (e *Engine) refreshIndex(ctx context.Context, backupID string, filesets []catalog.Fileset) {
	data, err := json.Marshal(indexDocument{
		Filesets:  filesets,
		UpdatedAt: time.Now(),
	})
	if err == nil {
		err = e.index.Write(ctx, indexKey(backupID), data)
	}
	if err != nil {
		e.l.Error("failed to refresh fileset index", zap.String("backup", backupID), zap.Error(err))
		metrics.IndexRefreshFailedCounter.WithLabelValues().Inc()
		return
	}
	e.l.Debug("refreshed fileset index", zap.String("backup", backupID), zap.Int("filesets", len(filesets)))
}

func (e *Engine) listRemoteKeys(ctx context.Context, storage Storage, retries int) ([]string, error) {
	var (
		keys []string
		err  error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		keys, err = storage.List(ctx, filesetKeyPrefix)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return keys, err
		}
	}
	return nil, err
}

// ------------------------------------------------------------------------------------------------
// ~ List folder
// ------------------------------------------------------------------------------------------------

func (e *Engine) listFolder(ctx context.Context, d *task.Descriptor) (task.Result, error) {
	doc, err := e.documentAt(ctx, d)
	if err != nil {
		return nil, err
	}

	paths := d.Paths
	if len(paths) == 0 {
		paths = []string{"/"}
	}

	var entries []catalog.Entry
	for _, folder := range paths {
		entries = append(entries, directChildren(doc.Entries, folder)...)
	}

	page, total := pageWindow(entries, d.Page, d.PageSize)
	return &task.FolderResult{
		Entries:    page,
		Page:       d.Page,
		PageSize:   d.PageSize,
		TotalCount: total,
	}, nil
}

// directChildren returns the entries immediately below folder,
// preserving their document order
func directChildren(entries []catalog.Entry, folder string) []catalog.Entry {
	prefix := strings.TrimSuffix(folder, "/") + "/"
	var children []catalog.Entry
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Path, prefix)
		if !ok || rest == "" {
			continue
		}
		if strings.Contains(strings.TrimSuffix(rest, "/"), "/") {
			continue
		}
		children = append(children, e)
	}
	return children
}

// ------------------------------------------------------------------------------------------------
// ~ List versions
// ------------------------------------------------------------------------------------------------

func (e *Engine) listVersions(ctx context.Context, d *task.Descriptor) (task.Result, error) {
	docs, err := e.allDocuments(ctx, d)
	if err != nil {
		return nil, err
	}

	var rows []catalog.VersionedEntry
	for _, doc := range docs {
		for _, p := range d.Paths {
			for _, entry := range doc.Entries {
				if entry.Path == p {
					rows = append(rows, versionedEntry(doc, entry))
					break
				}
			}
		}
	}

	page, total := pageWindow(rows, d.Page, d.PageSize)
	return &task.VersionsResult{
		Entries:    page,
		Page:       d.Page,
		PageSize:   d.PageSize,
		TotalCount: total,
	}, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Search
// ------------------------------------------------------------------------------------------------

func (e *Engine) search(ctx context.Context, d *task.Descriptor) (task.Result, error) {
	doc, err := e.documentAt(ctx, d)
	if err != nil {
		return nil, err
	}

	var rows []catalog.VersionedEntry
	for _, entry := range doc.Entries {
		if !inScope(entry.Path, d.Paths) {
			continue
		}
		if !matchesAny(entry.Path, d.Filters) {
			continue
		}
		rows = append(rows, versionedEntry(doc, entry))
	}

	page, total := pageWindow(rows, d.Page, d.PageSize)
	return &task.SearchResult{
		Entries:    page,
		Page:       d.Page,
		PageSize:   d.PageSize,
		TotalCount: total,
	}, nil
}

func inScope(entryPath string, paths []string) bool {
	if len(paths) == 0 {
		return true
	}
	for _, p := range paths {
		if entryPath == p || strings.HasPrefix(entryPath, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func matchesAny(entryPath string, filters []requests.Filter) bool {
	for _, f := range filters {
		expression, candidate := f.Expression, entryPath
		if f.CaseInsensitive {
			expression = strings.ToLower(expression)
			candidate = strings.ToLower(candidate)
		}
		if ok, err := path.Match(expression, candidate); err == nil && ok {
			return true
		}
		if strings.Contains(candidate, expression) {
			return true
		}
	}
	return false
}

// ------------------------------------------------------------------------------------------------
// ~ Document access
// ------------------------------------------------------------------------------------------------

// documentAt loads the fileset the descriptor's time selects: the
// epoch origin selects the oldest fileset, any later time the newest
// fileset at or before it. A time before the first fileset also falls
// back to the oldest one.
func (e *Engine) documentAt(ctx context.Context, d *task.Descriptor) (*catalog.Document, error) {
	docs, err := e.allDocuments(ctx, d)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.Errorf("backup %q has no filesets", d.Backup.ID)
	}

	// docs are sorted newest first
	oldest := docs[len(docs)-1]
	if d.Time.IsZero() || !d.Time.After(time.Unix(0, 0)) {
		return oldest, nil
	}
	for _, doc := range docs {
		if !doc.Time.After(d.Time) {
			return doc, nil
		}
	}
	return oldest, nil
}

func (e *Engine) allDocuments(ctx context.Context, d *task.Descriptor) ([]*catalog.Document, error) {
	storage, err := e.storage(ctx, d.Backup)
	if err != nil {
		return nil, err
	}

	keys, err := storage.List(ctx, filesetKeyPrefix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(task.ErrRemoteFolderMissing, "target %q of backup %q", d.Backup.TargetURL, d.Backup.ID)
		}
		return nil, errors.Wrapf(err, "failed to list target of backup %q", d.Backup.ID)
	}
	return e.loadDocuments(ctx, storage, keys)
}

// loadDocuments fetches all fileset documents behind keys, newest
// first. Keys that are no fileset documents are skipped.
func (e *Engine) loadDocuments(ctx context.Context, storage Storage, keys []string) ([]*catalog.Document, error) {
	var docKeys []string
	for _, key := range keys {
		if strings.HasPrefix(key, filesetKeyPrefix) && strings.HasSuffix(key, filesetKeySuffix) {
			docKeys = append(docKeys, key)
		}
	}

	docs := make([]*catalog.Document, len(docKeys))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(documentConcurrency)
	for i, key := range docKeys {
		g.Go(func() error {
			data, err := storage.Read(gCtx, key)
			if err != nil {
				return errors.Wrapf(err, "failed to read fileset document %q", key)
			}
			doc := &catalog.Document{}
			if err := json.Unmarshal(data, doc); err != nil {
				return errors.Wrapf(err, "failed to parse fileset document %q", key)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Version > docs[j].Version
	})
	return docs, nil
}

func versionedEntry(doc *catalog.Document, entry catalog.Entry) catalog.VersionedEntry {
	return catalog.VersionedEntry{
		Version:      doc.Version,
		Time:         doc.Time,
		Path:         entry.Path,
		IsDirectory:  entry.IsDirectory,
		Size:         entry.Size,
		LastModified: entry.LastModified,
		IsSymlink:    entry.IsSymlink,
	}
}

// pageWindow slices one page out of items and reports the total count.
// Any page beyond the items yields an empty window, the comparison runs
// before the offset multiplication so huge page numbers cannot overflow.
func pageWindow[T any](items []T, page, pageSize int) ([]T, int64) {
	total := int64(len(items))
	if page < 0 || pageSize <= 0 || int64(page) > total/int64(pageSize) {
		return nil, total
	}
	from := page * pageSize
	if from >= len(items) {
		return nil, total
	}
	to := from + pageSize
	if to > len(items) {
		to = len(items)
	}
	return items[from:to], total
}
