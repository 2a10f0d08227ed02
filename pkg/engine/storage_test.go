package engine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func newTestBlobStorage(t *testing.T, prefix string) *BlobStorage {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })
	return NewBlobStorageFromBucket(bucket, prefix)
}

func testStorages(t *testing.T) map[string]Storage {
	t.Helper()
	fs, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	return map[string]Storage{
		"filesystem": fs,
		"blob":       newTestBlobStorage(t, ""),
	}
}

func TestStorage_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	for name, storage := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			err := storage.Write(ctx, "test-key", []byte("test-data"))
			require.NoError(t, err)

			data, err := storage.Read(ctx, "test-key")
			require.NoError(t, err)
			assert.Equal(t, []byte("test-data"), data)

			err = storage.Write(ctx, "test-key", []byte("updated"))
			require.NoError(t, err)

			data, err = storage.Read(ctx, "test-key")
			require.NoError(t, err)
			assert.Equal(t, []byte("updated"), data)

			require.NoError(t, storage.Delete(ctx, "test-key"))
			_, err = storage.Read(ctx, "test-key")
			assert.ErrorIs(t, err, os.ErrNotExist)

			// deleting again is idempotent
			require.NoError(t, storage.Delete(ctx, "test-key"))
		})
	}
}

func TestStorage_Read_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, storage := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			_, err := storage.Read(ctx, "nonexistent-key")
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestStorage_List_SortedDescending(t *testing.T) {
	ctx := context.Background()
	for name, storage := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, storage.Write(ctx, "fileset-0.json", []byte("a")))
			require.NoError(t, storage.Write(ctx, "fileset-1.json", []byte("b")))
			require.NoError(t, storage.Write(ctx, "other.json", []byte("c")))

			keys, err := storage.List(ctx, "fileset-")
			require.NoError(t, err)
			assert.Equal(t, []string{"fileset-1.json", "fileset-0.json"}, keys)
		})
	}
}

func TestBlobStorage_WithPrefix(t *testing.T) {
	ctx := context.Background()
	storage := newTestBlobStorage(t, "my-prefix")

	require.NoError(t, storage.Write(ctx, "test-key", []byte("test-data")))

	data, err := storage.Read(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("test-data"), data)

	keys, err := storage.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"test-key"}, keys)
}

func TestFilesystemTarget_List_MissingDir(t *testing.T) {
	storage := NewFilesystemTarget(t.TempDir() + "/does-not-exist")
	_, err := storage.List(context.Background(), "fileset-")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
