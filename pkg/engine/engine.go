// Package engine executes catalog tasks against a backup's target
// store. Filesets are kept as JSON documents named
// fileset-<version>-<unixseconds>.json; any key with an .aes suffix
// marks the store as encrypted.
package engine

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/pkg/registry"
	"github.com/bitshelter/filecatalog/pkg/task"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	filesetKeyPrefix    = "fileset-"
	filesetKeySuffix    = ".json"
	encryptedKeySuffix  = ".aes"
	documentConcurrency = 4
)

// StorageOpener opens the storage behind a backup's target URL
type StorageOpener func(ctx context.Context, backup *registry.Backup) (Storage, error)

type (
	// Engine implements task.Executor on top of per-backup target
	// storages and an optional local fileset index.
	Engine struct {
		l            *zap.Logger
		index        Storage
		openStorage  StorageOpener
		storages     map[string]Storage
		storagesLock sync.Mutex
	}
	Option func(*Engine)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, opts ...Option) *Engine {
	inst := &Engine{
		l:           l.Named("engine"),
		openStorage: OpenTargetStorage,
		storages:    map[string]Storage{},
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithIndex enables the local fileset index
func WithIndex(v Storage) Option {
	return func(o *Engine) {
		o.index = v
	}
}

// WithStorageOpener overrides how backup targets are opened
func WithStorageOpener(v StorageOpener) Option {
	return func(o *Engine) {
		o.openStorage = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Execute runs one task descriptor to completion
func (e *Engine) Execute(ctx context.Context, d *task.Descriptor) (task.Result, error) {
	switch d.Kind {
	case task.KindListFilesets:
		return e.listFilesets(ctx, d)
	case task.KindListFolder:
		return e.listFolder(ctx, d)
	case task.KindListVersions:
		return e.listVersions(ctx, d)
	case task.KindSearch:
		return e.search(ctx, d)
	default:
		return nil, errors.Errorf("unknown task kind %q", d.Kind)
	}
}

// Close releases all opened target storages and the index
func (e *Engine) Close() error {
	e.storagesLock.Lock()
	defer e.storagesLock.Unlock()

	var err error
	for id, storage := range e.storages {
		err = multierr.Append(err, errors.Wrapf(storage.Close(), "failed to close storage for backup %q", id))
		delete(e.storages, id)
	}
	if e.index != nil {
		err = multierr.Append(err, e.index.Close())
	}
	return err
}

// OpenTargetStorage is the default storage opener: file:// paths map to
// the filesystem, everything else is treated as a blob bucket URL.
func OpenTargetStorage(ctx context.Context, backup *registry.Backup) (Storage, error) {
	if dir, ok := strings.CutPrefix(backup.TargetURL, "file://"); ok {
		return NewFilesystemTarget(dir), nil
	}
	return NewBlobStorage(ctx, backup.TargetURL, "")
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (e *Engine) storage(ctx context.Context, backup *registry.Backup) (Storage, error) {
	e.storagesLock.Lock()
	defer e.storagesLock.Unlock()

	if storage, ok := e.storages[backup.ID]; ok {
		return storage, nil
	}
	storage, err := e.openStorage(ctx, backup)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open target %q for backup %q", backup.TargetURL, backup.ID)
	}
	e.storages[backup.ID] = storage
	return storage, nil
}

func retriesFromOptions(d *task.Descriptor) int {
	v, ok := d.Options[task.OptionNumberOfRetries]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func noLocalDBFromOptions(d *task.Descriptor) bool {
	v, ok := d.Options[task.OptionNoLocalDB]
	return ok && v == "true"
}

// FilesetDocumentKey names the stored document of one fileset
func FilesetDocumentKey(version int64, t time.Time) string {
	return filesetKeyPrefix + strconv.FormatInt(version, 10) + "-" + strconv.FormatInt(t.Unix(), 10) + filesetKeySuffix
}
