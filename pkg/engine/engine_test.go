package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bitshelter/filecatalog/catalog"
	"github.com/bitshelter/filecatalog/pkg/registry"
	"github.com/bitshelter/filecatalog/pkg/task"
	"github.com/bitshelter/filecatalog/requests"
)

var (
	timeV0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timeV1 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
)

func writeFixtureDocuments(t *testing.T, storage Storage) {
	t.Helper()
	ctx := context.Background()

	docs := []*catalog.Document{
		{
			Version: 0,
			Time:    timeV0,
			Entries: []catalog.Entry{
				{Path: "/home", IsDirectory: true, Size: catalog.SizeUnknown},
				{Path: "/home/a.txt", Size: 10, LastModified: timeV0},
				{Path: "/home/b.log", Size: 20, LastModified: timeV0},
				{Path: "/etc", IsDirectory: true, Size: catalog.SizeUnknown},
				{Path: "/etc/conf", Size: 5, LastModified: timeV0},
			},
		},
		{
			Version:      1,
			Time:         timeV1,
			IsFullBackup: true,
			Entries: []catalog.Entry{
				{Path: "/home", IsDirectory: true, Size: catalog.SizeUnknown},
				{Path: "/home/a.txt", Size: 12, LastModified: timeV1},
				{Path: "/home/c.txt", Size: 7, LastModified: timeV1},
				{Path: "/home/sub", IsDirectory: true, Size: catalog.SizeUnknown},
				{Path: "/home/sub/d.txt", Size: 3, LastModified: timeV1},
			},
		},
	}
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, storage.Write(ctx, FilesetDocumentKey(doc.Version, doc.Time), data))
	}
}

func newTestEngine(t *testing.T, storage Storage, opts ...Option) *Engine {
	t.Helper()
	opts = append(opts, WithStorageOpener(func(ctx context.Context, backup *registry.Backup) (Storage, error) {
		return storage, nil
	}))
	return New(zaptest.NewLogger(t), opts...)
}

func newDescriptor(kind task.Kind) *task.Descriptor {
	d := task.NewDescriptor(kind, &registry.Backup{ID: "b1", TargetURL: "mem://"})
	d.PageSize = 1000
	return d
}

func TestListFilesetsRemote(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListFilesets)
	d.Options[task.OptionNoLocalDB] = "true"

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	filesets, ok := result.(*task.FilesetsResult)
	require.True(t, ok)
	require.Len(t, filesets.Filesets, 2)
	// newest first
	assert.Equal(t, int64(1), filesets.Filesets[0].Version)
	assert.Equal(t, int64(0), filesets.Filesets[1].Version)
	assert.Equal(t, int64(5), filesets.Filesets[0].FileCount)
	assert.Equal(t, int64(22), filesets.Filesets[0].FileSizes)
	assert.True(t, filesets.Filesets[0].IsFullBackup)
	assert.Equal(t, int64(2), filesets.TotalCount)
	require.NotNil(t, filesets.EncryptedFiles)
	assert.False(t, *filesets.EncryptedFiles)
}

func TestListFilesetsPaging(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListFilesets)
	d.Options[task.OptionNoLocalDB] = "true"
	d.Page = 1
	d.PageSize = 1

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	filesets := result.(*task.FilesetsResult)
	require.Len(t, filesets.Filesets, 1)
	assert.Equal(t, int64(0), filesets.Filesets[0].Version)
	assert.Equal(t, int64(2), filesets.TotalCount)
	assert.Equal(t, 1, filesets.Page)
	assert.Equal(t, 1, filesets.PageSize)
}

func TestListFilesetsEncryptedStore(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	require.NoError(t, storage.Write(t.Context(), "fileset-2-1709294400.json.aes", []byte("garbage")))
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListFilesets)
	d.Options[task.OptionNoLocalDB] = "true"

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	filesets := result.(*task.FilesetsResult)
	require.NotNil(t, filesets.EncryptedFiles)
	assert.True(t, *filesets.EncryptedFiles)
	// the encrypted key must not be loaded as a document
	assert.Len(t, filesets.Filesets, 2)
}

func TestListFilesetsRemoteFolderMissing(t *testing.T) {
	e := newTestEngine(t, NewFilesystemTarget(t.TempDir()+"/does-not-exist"))

	d := newDescriptor(task.KindListFilesets)
	d.Options[task.OptionNoLocalDB] = "true"

	_, err := e.Execute(t.Context(), d)
	require.ErrorIs(t, err, task.ErrRemoteFolderMissing)
}

func TestListFilesetsUsesIndex(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	index, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	e := newTestEngine(t, storage, WithIndex(index))

	// first listing goes remote and refreshes the index
	result, err := e.Execute(t.Context(), newDescriptor(task.KindListFilesets))
	require.NoError(t, err)
	require.NotNil(t, result.(*task.FilesetsResult).EncryptedFiles)

	_, err = index.Read(t.Context(), "b1.json")
	require.NoError(t, err)

	// second listing is served from the index, no remote observation
	result, err = e.Execute(t.Context(), newDescriptor(task.KindListFilesets))
	require.NoError(t, err)
	filesets := result.(*task.FilesetsResult)
	assert.Nil(t, filesets.EncryptedFiles)
	require.Len(t, filesets.Filesets, 2)
	assert.Equal(t, int64(1), filesets.Filesets[0].Version)
}

func TestListFilesetsNoLocalDBBypassesIndex(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	index, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	e := newTestEngine(t, storage, WithIndex(index))

	d := newDescriptor(task.KindListFilesets)
	d.Options[task.OptionNoLocalDB] = "true"

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)
	assert.NotNil(t, result.(*task.FilesetsResult).EncryptedFiles)

	// a forced remote listing must not touch the index
	_, err = index.Read(t.Context(), "b1.json")
	require.Error(t, err)
}

func TestListFolderAtEpochUsesOldestFileset(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListFolder)
	d.Paths = []string{"/home"}
	d.Time = time.Unix(0, 0).UTC()

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	folder := result.(*task.FolderResult)
	require.Len(t, folder.Entries, 2)
	assert.Equal(t, "/home/a.txt", folder.Entries[0].Path)
	assert.Equal(t, int64(10), folder.Entries[0].Size)
	assert.Equal(t, "/home/b.log", folder.Entries[1].Path)
}

func TestListFolderAtTimeSelectsFileset(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListFolder)
	d.Paths = []string{"/home"}
	d.Time = timeV1.Add(24 * time.Hour)

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	folder := result.(*task.FolderResult)
	var paths []string
	for _, entry := range folder.Entries {
		paths = append(paths, entry.Path)
	}
	// direct children only, /home/sub/d.txt is one level too deep
	assert.Equal(t, []string{"/home/a.txt", "/home/c.txt", "/home/sub"}, paths)
}

func TestListFolderRoot(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListFolder)
	d.Time = time.Unix(0, 0).UTC()

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	folder := result.(*task.FolderResult)
	var paths []string
	for _, entry := range folder.Entries {
		paths = append(paths, entry.Path)
	}
	assert.Equal(t, []string{"/home", "/etc"}, paths)
}

func TestListVersions(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListVersions)
	d.Paths = []string{"/home/a.txt"}

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	versions := result.(*task.VersionsResult)
	require.Len(t, versions.Entries, 2)
	assert.Equal(t, int64(1), versions.Entries[0].Version)
	assert.Equal(t, int64(12), versions.Entries[0].Size)
	assert.Equal(t, int64(0), versions.Entries[1].Version)
	assert.Equal(t, int64(10), versions.Entries[1].Size)
	assert.Equal(t, int64(2), versions.TotalCount)
}

func TestListVersionsUnknownPath(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListVersions)
	d.Paths = []string{"/nope"}

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)
	assert.Empty(t, result.(*task.VersionsResult).Entries)
}

func TestSearchGlob(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindSearch)
	d.Filters = []requests.Filter{{Expression: "/home/*.txt"}}
	d.Time = timeV1.Add(time.Hour)

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	found := result.(*task.SearchResult)
	var paths []string
	for _, entry := range found.Entries {
		paths = append(paths, entry.Path)
	}
	assert.Equal(t, []string{"/home/a.txt", "/home/c.txt"}, paths)
	assert.Equal(t, int64(1), found.Entries[0].Version)
	assert.Equal(t, timeV1, found.Entries[0].Time)
}

func TestSearchCaseInsensitiveSubstring(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindSearch)
	d.Filters = []requests.Filter{{Expression: "A.TXT", CaseInsensitive: true}}
	d.Time = time.Unix(0, 0).UTC()

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	found := result.(*task.SearchResult)
	require.Len(t, found.Entries, 1)
	assert.Equal(t, "/home/a.txt", found.Entries[0].Path)
	assert.Equal(t, int64(0), found.Entries[0].Version)
}

func TestSearchScopedToPaths(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindSearch)
	d.Filters = []requests.Filter{{Expression: "conf"}}
	d.Paths = []string{"/home"}
	d.Time = time.Unix(0, 0).UTC()

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)
	assert.Empty(t, result.(*task.SearchResult).Entries)
}

func TestPageWindowBounds(t *testing.T) {
	items := []int{1, 2, 3}

	window, total := pageWindow(items, 0, 2)
	assert.Equal(t, []int{1, 2}, window)
	assert.Equal(t, int64(3), total)

	window, _ = pageWindow(items, 1, 2)
	assert.Equal(t, []int{3}, window)

	window, _ = pageWindow(items, 2, 2)
	assert.Empty(t, window)

	// page offsets beyond the items must not wrap around
	window, total = pageWindow(items, math.MaxInt/1000+1, 1000)
	assert.Empty(t, window)
	assert.Equal(t, int64(3), total)

	window, _ = pageWindow(items, math.MaxInt, math.MaxInt)
	assert.Empty(t, window)

	window, _ = pageWindow(items, -1, 2)
	assert.Empty(t, window)

	window, _ = pageWindow(items, 0, 0)
	assert.Empty(t, window)
}

func TestListFilesetsHugePageNumber(t *testing.T) {
	storage := newTestBlobStorage(t, "")
	writeFixtureDocuments(t, storage)
	e := newTestEngine(t, storage)

	d := newDescriptor(task.KindListFilesets)
	d.Options[task.OptionNoLocalDB] = "true"
	d.Page = math.MaxInt/1000 + 1
	d.PageSize = 1000

	result, err := e.Execute(t.Context(), d)
	require.NoError(t, err)

	filesets := result.(*task.FilesetsResult)
	assert.Empty(t, filesets.Filesets)
	assert.Equal(t, int64(2), filesets.TotalCount)
}

func TestUnknownTaskKind(t *testing.T) {
	e := newTestEngine(t, newTestBlobStorage(t, ""))
	_, err := e.Execute(t.Context(), newDescriptor(task.Kind("bogus")))
	require.Error(t, err)
}
