// Package usecase はdetectionフィーチャー（Media Detector）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"deeptrust/internal/feature/detection/domain/entity"
	"deeptrust/internal/shared/media"
)

// MinImageDimension 以下の幅または高さの画像はアイコンやスペーサーとして除外します。
const MinImageDimension = 100

// DocumentProvider は現在のドキュメントのスナップショットを返す能力です。
// ライブのレンダリング環境がなくてもDetectorをテストできるように注入します。
type DocumentProvider interface {
	Snapshot(ctx context.Context) ([]entity.Element, error)
}

// MutationSource はドキュメント構造の変更を通知する能力です。
// 返されたチャネルはctxの終了とともに閉じられます。
type MutationSource interface {
	Mutations(ctx context.Context) (<-chan struct{}, error)
}

// ListStore は最新の検出リストを保存します（拡張機能のローカルストレージ相当）。
type ListStore interface {
	Save(ctx context.Context, records []media.DetectionRecord) error
}

// Option はDetectorの設定を変更します。
type Option func(*Detector)

// WithDebounce はミューテーションのバーストをまとめる待ち時間を設定します。0は毎回再スキャンします。
func WithDebounce(d time.Duration) Option {
	return func(det *Detector) { det.debounce = d }
}

// WithLogger はロガーを設定します。
func WithLogger(l *slog.Logger) Option {
	return func(det *Detector) { det.logger = l }
}

// Detector はページ上のメディア要素を列挙し、最新のDetectionRecordリストを保持します。
type Detector struct {
	provider DocumentProvider
	store    ListStore
	debounce time.Duration
	logger   *slog.Logger

	// scanMu はスキャンを直列化します。リストは最後に完了したスキャンの結果です。
	scanMu  sync.Mutex
	mu      sync.RWMutex
	current []media.DetectionRecord
}

// NewDetector はDetectorを生成します。storeはnilでも構いません。
func NewDetector(provider DocumentProvider, store ListStore, opts ...Option) *Detector {
	d := &Detector{
		provider: provider,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect はドキュメントを走査して検出リストを丸ごと置き換え、新しいリストを返します。
func (d *Detector) Detect(ctx context.Context) ([]media.DetectionRecord, error) {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	elements, err := d.provider.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]media.DetectionRecord, 0, len(elements))
	for _, el := range elements {
		if rec, ok := Classify(el); ok {
			records = append(records, rec)
		}
	}

	d.mu.Lock()
	d.current = records
	d.mu.Unlock()

	if d.store != nil {
		if err := d.store.Save(ctx, records); err != nil {
			// 保存は副作用のみ。失敗してもリストは更新済み
			d.logger.Warn("failed to store detected media", "error", err, "count", len(records))
		}
	}

	d.logger.Debug("media detected", "count", len(records))
	return Clone(records), nil
}

// Current は最後に完了したスキャンの結果のコピーを返します。
func (d *Detector) Current() []media.DetectionRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Clone(d.current)
}

// Find はsourceURLが一致する最初のレコードを返します。
func (d *Detector) Find(sourceURL string) (media.DetectionRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.current {
		if r.SourceURL == sourceURL {
			return r, true
		}
	}
	return media.DetectionRecord{}, false
}

// Watch は起動時に一度検出し、その後ミューテーションのたびに再検出します。
// ctxが終了するかミューテーションチャネルが閉じると戻ります。
// 監視を開始できない場合も、起動時の検出は行ってからエラーを返します。
func (d *Detector) Watch(ctx context.Context, src MutationSource) error {
	mutations, err := src.Mutations(ctx)
	if err != nil {
		d.rescan(ctx)
		return err
	}

	d.rescan(ctx)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-mutations:
			if !ok {
				return nil
			}
			if d.debounce <= 0 {
				d.rescan(ctx)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(d.debounce)
				timerC = timer.C
			}
		case <-timerC:
			timer, timerC = nil, nil
			d.rescan(ctx)
		}
	}
}

func (d *Detector) rescan(ctx context.Context) {
	if _, err := d.Detect(ctx); err != nil && ctx.Err() == nil {
		d.logger.Warn("media detection failed", "error", err)
	}
}

// Classify は要素がメディア候補であればDetectionRecordに変換します。
func Classify(el entity.Element) (media.DetectionRecord, bool) {
	switch strings.ToLower(el.Tag) {
	case "img":
		if el.Src != "" && el.NaturalWidth > MinImageDimension && el.NaturalHeight > MinImageDimension {
			return media.DetectionRecord{MediaType: media.Image, SourceURL: el.Src, Element: el.Handle}, true
		}
	case "video":
		src := el.Src
		if src == "" {
			src = el.CurrentSrc
		}
		if src != "" {
			return media.DetectionRecord{MediaType: media.Video, SourceURL: src, Element: el.Handle}, true
		}
	}
	return media.DetectionRecord{}, false
}

// Clone はレコードのスライスをコピーします。要素ハンドルは共有されます。
func Clone(records []media.DetectionRecord) []media.DetectionRecord {
	out := make([]media.DetectionRecord, len(records))
	copy(out, records)
	return out
}
