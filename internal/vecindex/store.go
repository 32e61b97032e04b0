package vecindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/revisify/backend/internal/logger"
)

// Store persists index snapshots on disk, one file per document version.
// Writes stage to a temp file and rename into place so readers never see a
// partial snapshot; reads go through a singleflight-guarded cache.
type Store struct {
	dir string
	log *logger.Logger

	sf    singleflight.Group
	mu    sync.RWMutex
	cache map[string]*Index
}

func NewStore(dir string, baseLog *logger.Logger) *Store {
	return &Store{
		dir:   dir,
		log:   baseLog.With("component", "vecindex_store"),
		cache: make(map[string]*Index),
	}
}

func (s *Store) path(documentID uint, version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("doc_%d_v%d.idx", documentID, version))
}

// Save writes the snapshot for a document version and drops any cached copy.
func (s *Store) Save(documentID uint, version int, ix *Index) error {
	blob, err := ix.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("vecindex: create index dir: %w", err)
	}
	final := s.path(documentID, version)
	staging := final + ".tmp"
	if err := os.WriteFile(staging, blob, 0o644); err != nil {
		return fmt.Errorf("vecindex: write staging snapshot: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		os.Remove(staging)
		return fmt.Errorf("vecindex: publish snapshot: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, final)
	s.mu.Unlock()

	s.log.Info("Saved index snapshot",
		"document_id", documentID,
		"version", version,
		"vectors", ix.Len())
	return nil
}

// Load returns the snapshot for a document version, or (nil, nil) when none
// was ever built. Concurrent loads of the same snapshot collapse into one
// disk read.
func (s *Store) Load(documentID uint, version int) (*Index, error) {
	key := s.path(documentID, version)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		blob, err := os.ReadFile(key)
		if err != nil {
			if os.IsNotExist(err) {
				return (*Index)(nil), nil
			}
			return nil, fmt.Errorf("vecindex: read snapshot: %w", err)
		}
		ix, err := Decode(blob)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = ix
		s.mu.Unlock()
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Remove deletes the snapshot for a document version. Missing files are fine.
func (s *Store) Remove(documentID uint, version int) error {
	key := s.path(documentID, version)
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	if err := os.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vecindex: remove snapshot: %w", err)
	}
	return nil
}
