package registry

import (
	"os"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// Registry knows every configured backup. It is loaded from a JSON
	// file and read-only afterwards, apart from explicit reloads.
	Registry struct {
		l           *zap.Logger
		path        string
		loaded      *atomic.Bool
		backups     map[string]*Backup
		backupsLock sync.RWMutex
	}
	Option func(*Registry)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, path string, opts ...Option) *Registry {
	inst := &Registry{
		l:       l.Named("registry"),
		path:    path,
		loaded:  &atomic.Bool{},
		backups: map[string]*Backup{},
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (r *Registry) Loaded() bool {
	return r.loaded.Load()
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Load reads the backup definitions from disk and replaces the directory
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read backup definitions from %q", r.path)
	}

	var defs []*Backup
	if err := json.Unmarshal(data, &defs); err != nil {
		return errors.Wrap(err, "failed to parse backup definitions")
	}

	backups := make(map[string]*Backup, len(defs))
	for _, b := range defs {
		if b.ID == "" {
			return errors.Errorf("backup definition without id in %q", r.path)
		}
		if _, ok := backups[b.ID]; ok {
			return errors.Errorf("duplicate backup id %q in %q", b.ID, r.path)
		}
		if !utils.IsValidTargetURL(b.TargetURL) {
			return errors.Errorf("backup %q has an invalid target url %q", b.ID, b.TargetURL)
		}
		backups[b.ID] = b
	}

	r.backupsLock.Lock()
	r.backups = backups
	r.backupsLock.Unlock()
	r.loaded.Store(true)

	r.l.Info("loaded backup definitions", zap.Int("count", len(backups)))
	return nil
}

// Lookup resolves a backup by id
func (r *Registry) Lookup(id string) (*Backup, bool) {
	r.backupsLock.RLock()
	defer r.backupsLock.RUnlock()
	b, ok := r.backups[id]
	return b, ok
}

// IDs returns all known backup ids
func (r *Registry) IDs() []string {
	r.backupsLock.RLock()
	defer r.backupsLock.RUnlock()
	ids := make([]string, 0, len(r.backups))
	for id := range r.backups {
		ids = append(ids, id)
	}
	return ids
}
