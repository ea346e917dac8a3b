package cartstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/domain/model"
)

// ローカルスナップショットの固定キー名
const StoreName = "cart-storage"

type SnapshotItem struct {
	Product  model.Product `json:"product"`
	Quantity int64         `json:"quantity"`
}

// Snapshot はリロードをまたいで生き残るカートのローカル写し。
// ロックではなく、ただのベストエフォートのオフラインキャッシュ。
type Snapshot struct {
	Items []SnapshotItem `json:"items"`
}

type SnapshotStore interface {
	//起動時に1回だけ読む。無ければ ok=false
	Load() (Snapshot, bool, error)
	//settledな遷移のたびに書く
	Save(snap Snapshot) error
	Clear() error
}

// FileSnapshotStore はJSONファイル1枚のSnapshotStore
type FileSnapshotStore struct {
	path string
}

func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{path: filepath.Join(dir, StoreName+".json")}
}

func (s *FileSnapshotStore) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		//壊れたスナップショットは無かったことにする
		return Snapshot{}, false, nil
	}

	return snap, true, nil
}

func (s *FileSnapshotStore) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileSnapshotStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemorySnapshotStore はテスト用のインメモリ実装
type MemorySnapshotStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) Load() (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return Snapshot{}, false, nil
	}
	return *s.snap, true, nil
}

func (s *MemorySnapshotStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := snap
	s.snap = &cp
	return nil
}

func (s *MemorySnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}
