// Package popup はポップアップ（User Interface）のコンテキストです。
// 表示はViewに委譲し、ページとバックグラウンドにはメッセージで問い合わせます。
package popup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"deeptrust/internal/feature/extension/message"
	"deeptrust/internal/shared/media"
)

// DefaultErrorCooldown はエラー表示からボタンを戻すまでの時間です。
const DefaultErrorCooldown = 2 * time.Second

var (
	// ErrNoSuchItem は一覧にないインデックスが指定されたことを示します。
	ErrNoSuchItem = errors.New("no such media item")

	// ErrClosed はクローズ済みのポップアップを操作したことを示します。
	ErrClosed = errors.New("popup closed")
)

// Messenger はポップアップが使うメッセージングの能力です。
type Messenger interface {
	Request(ctx context.Context, from, to string, msg any) (json.RawMessage, error)
	RequestInto(ctx context.Context, from, to string, msg, out any) error
	Send(ctx context.Context, from, to string, msg any) error
}

// Popup は1つのタブに対して開かれたポップアップです。
// 閉じた後に届いた返答やタイマーは何もしません。
type Popup struct {
	tab      string
	bus      Messenger
	view     View
	cooldown time.Duration
	logger   *slog.Logger

	life   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	items  []media.DetectionRecord
	closed bool
	timers []*time.Timer
}

// New はPopupを生成します。cooldown<=0の場合はDefaultErrorCooldownです。
func New(tab string, bus Messenger, view View, cooldown time.Duration, logger *slog.Logger) *Popup {
	if cooldown <= 0 {
		cooldown = DefaultErrorCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	life, cancel := context.WithCancel(context.Background())
	return &Popup{
		tab:      tab,
		bus:      bus,
		view:     view,
		cooldown: cooldown,
		logger:   logger.With("context", message.PopupEndpoint(tab)),
		life:     life,
		cancel:   cancel,
	}
}

// Load はページに検出リストを問い合わせて一覧を表示します。
func (p *Popup) Load(ctx context.Context) ([]media.DetectionRecord, error) {
	p.render(func(v View) { v.ShowLoading(LoadingText) })

	ctx, stop := p.scope(ctx)
	defer stop()

	var list message.MediaList
	err := p.bus.RequestInto(ctx, p.endpoint(), message.PageEndpoint(p.tab), message.NewGetMedia(), &list)
	if err != nil {
		p.logger.Warn("failed to get media from page", "error", err)
	}

	p.mu.Lock()
	if err != nil || len(list.Media) == 0 {
		p.items = nil
	} else {
		p.items = list.Media
	}
	rows := rowsFor(p.items)
	p.mu.Unlock()

	if len(rows) == 0 {
		p.render(func(v View) { v.ShowEmpty(EmptyText) })
		return nil, err
	}
	p.render(func(v View) { v.ShowMedia(rows) })
	return list.Media, nil
}

// Rescan は一覧を再取得します。
func (p *Popup) Rescan(ctx context.Context) ([]media.DetectionRecord, error) {
	return p.Load(ctx)
}

// Items は現在表示中の一覧のコピーを返します。
func (p *Popup) Items() []media.DetectionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]media.DetectionRecord, len(p.items))
	copy(out, p.items)
	return out
}

// TriggerAnalyze は一覧のindex番目のメディアを分析します。
// 成功すると結果パネルを表示し、ページにもshowResultを送ります。
// 失敗するとボタンをcooldownの間"Error"にしてから元に戻します。
func (p *Popup) TriggerAnalyze(ctx context.Context, index int) (*media.AnalysisResult, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if index < 0 || index >= len(p.items) {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrNoSuchItem, index)
	}
	item := p.items[index]
	p.mu.Unlock()

	p.render(func(v View) { v.SetButton(index, ButtonState{Label: AnalyzingLabel, Disabled: true}) })

	ctx, stop := p.scope(ctx)
	defer stop()

	raw, err := p.bus.Request(ctx, p.endpoint(), message.BackgroundEndpoint, message.NewAnalyzeMedia(item.SourceURL, item.MediaType))
	var res *media.AnalysisResult
	if err == nil {
		res, err = message.DecodeAnalysisReply(raw)
	}
	if err != nil {
		p.logger.Warn("analysis failed", "error", err, "url", item.SourceURL)
		p.fail(index)
		return nil, err
	}

	panel := ResultPanel{
		Headline:    fmt.Sprintf("%d%% Deepfake Probability", res.DeepfakeScore),
		ScoreClass:  media.SeverityOf(res.DeepfakeScore).ScoreClass(),
		Explanation: media.PlainText(res.Explanation),
	}
	p.render(func(v View) {
		v.ShowResult(panel)
		v.SetButton(index, ButtonState{Label: AnalyzeLabel})
	})

	if err := p.bus.Send(ctx, p.endpoint(), message.PageEndpoint(p.tab), message.NewShowResult(item.SourceURL, res)); err != nil {
		p.logger.Warn("failed to forward result to page", "error", err, "url", item.SourceURL)
	}
	return res, nil
}

// Close はポップアップを閉じます。実行中の問い合わせは待たずに破棄されます。
func (p *Popup) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
	p.mu.Unlock()

	p.cancel()
}

func (p *Popup) fail(index int) {
	p.render(func(v View) { v.SetButton(index, ButtonState{Label: ErrorLabel, Disabled: true}) })

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	t := time.AfterFunc(p.cooldown, func() {
		p.render(func(v View) { v.SetButton(index, ButtonState{Label: AnalyzeLabel}) })
	})
	p.timers = append(p.timers, t)
}

// render はポップアップが開いている間だけViewを更新します。
func (p *Popup) render(fn func(View)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	fn(p.view)
}

// scope はポップアップが閉じたときにも終了するcontextを返します。
func (p *Popup) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (p *Popup) endpoint() string {
	return message.PopupEndpoint(p.tab)
}

func rowsFor(items []media.DetectionRecord) []Row {
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		thumb := item.SourceURL
		if item.MediaType != media.Image {
			thumb = ThumbnailFallback
		}
		rows = append(rows, Row{
			Index:     i,
			Type:      string(item.MediaType),
			URL:       item.SourceURL,
			Thumbnail: thumb,
			Button:    ButtonState{Label: AnalyzeLabel},
		})
	}
	return rows
}
