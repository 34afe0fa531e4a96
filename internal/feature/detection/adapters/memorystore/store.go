// Package memorystore はプロセス内メモリにDetectionRecordリストを保持するListStoreです。
package memorystore

import (
	"context"
	"sync"

	"deeptrust/internal/feature/detection/usecase"
	"deeptrust/internal/shared/media"
)

var _ usecase.ListStore = (*Store)(nil)

// Store は最後に保存されたリストを保持します。
type Store struct {
	mu      sync.RWMutex
	records []media.DetectionRecord
	saves   int
}

func New() *Store {
	return &Store{}
}

func (s *Store) Save(ctx context.Context, records []media.DetectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = usecase.Clone(records)
	s.saves++
	return nil
}

// Load は最後に保存されたリストのコピーを返します。
func (s *Store) Load(ctx context.Context) ([]media.DetectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return usecase.Clone(s.records), nil
}

// Saves はSaveの呼び出し回数です。
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
