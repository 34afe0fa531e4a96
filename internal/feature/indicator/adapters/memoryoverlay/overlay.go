// Package memoryoverlay はバッジをメモリ上に記録するOverlayです。
// 静的HTMLのスキャン結果の表示とテストで使います。
package memoryoverlay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"deeptrust/internal/feature/indicator/domain/entity"
	"deeptrust/internal/feature/indicator/usecase"
)

// ErrNotFound は存在しないバッジIDです。
var ErrNotFound = errors.New("badge not found")

var _ usecase.Overlay = (*Overlay)(nil)

// Overlay は描画されたバッジを描画順に保持します。
type Overlay struct {
	mu     sync.Mutex
	seq    int
	order  []string
	badges map[string]entity.Badge
}

func New() *Overlay {
	return &Overlay{badges: make(map[string]entity.Badge)}
}

func (o *Overlay) Draw(ctx context.Context, badge entity.Badge) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	id := fmt.Sprintf("badge-%d", o.seq)
	o.badges[id] = badge
	o.order = append(o.order, id)
	return id, nil
}

func (o *Overlay) Remove(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.badges[id]; !ok {
		return ErrNotFound
	}
	delete(o.badges, id)
	for i, v := range o.order {
		if v == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return nil
}

// Badges は表示中のバッジを描画順に返します。
func (o *Overlay) Badges() []entity.Badge {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]entity.Badge, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.badges[id])
	}
	return out
}
