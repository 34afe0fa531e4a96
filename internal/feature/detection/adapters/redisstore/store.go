// Package redisstore はDetectionRecordリストをRedisに保存するListStoreです。
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deeptrust/internal/feature/detection/usecase"
	"deeptrust/internal/shared/media"
)

// KeyPrefix はリストを保存するキーの接頭辞です。
const KeyPrefix = "detected_media"

// DefaultTTL はTTL未指定時の保持期間です。
const DefaultTTL = 30 * time.Minute

var _ usecase.ListStore = (*Store)(nil)

// Store はタブごとに最新の検出リストをJSONで保存します。
type Store struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// New はtabに紐づくStoreを生成します。ttl<=0の場合はDefaultTTLです。
func New(rdb *redis.Client, tab string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, key: Key(tab), ttl: ttl}
}

// Key はタブに対応するRedisキーを返します。
func Key(tab string) string {
	return KeyPrefix + ":" + tab
}

func (s *Store) Save(ctx context.Context, records []media.DetectionRecord) error {
	if records == nil {
		records = []media.DetectionRecord{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal detected media: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store detected media: %w", err)
	}
	return nil
}

// Load は保存済みのリストを返します。キーがない場合は空のリストです。
// 要素ハンドルは保存されないため、返るレコードのElementはnilです。
func (s *Store) Load(ctx context.Context) ([]media.DetectionRecord, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return []media.DetectionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load detected media: %w", err)
	}

	var records []media.DetectionRecord
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		return nil, fmt.Errorf("decode detected media: %w", err)
	}
	return records, nil
}
