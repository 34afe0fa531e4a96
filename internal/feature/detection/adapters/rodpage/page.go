// Package rodpage はChromeで開いたライブページをDocumentProviderおよび
// MutationSourceとして扱うアダプターです。
package rodpage

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"deeptrust/internal/feature/detection/domain/entity"
	"deeptrust/internal/feature/detection/usecase"
	"deeptrust/internal/shared/media"
)

//go:embed observer.js
var observerJS string

// BindingName はページ内のMutationObserverがGo側へ通知する関数名です。
const BindingName = "__deeptrust_mutation"

const mediaSelector = "img, video"

const describeJS = `() => ({
	tag: this.tagName.toLowerCase(),
	src: this.getAttribute("src") ? this.src : "",
	currentSrc: this.currentSrc || "",
	naturalWidth: this.naturalWidth || 0,
	naturalHeight: this.naturalHeight || 0,
})`

const boundsJS = `() => {
	if (!this.isConnected) {
		return null;
	}
	const r = this.getBoundingClientRect();
	return { x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height };
}`

var (
	_ usecase.DocumentProvider = (*Page)(nil)
	_ usecase.MutationSource   = (*Page)(nil)
	_ media.ElementHandle      = (*elementHandle)(nil)
)

// Page はrod.Pageをラップします。
type Page struct {
	page   *rod.Page
	logger *slog.Logger
}

// New はPageを生成します。loggerがnilの場合はslog.Defaultを使います。
func New(page *rod.Page, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{page: page, logger: logger}
}

// Rod は内部のrod.Pageを返します（オーバーレイ描画で共有するため）。
func (p *Page) Rod() *rod.Page {
	return p.page
}

// Snapshot は現在のDOMからimgとvideo要素をドキュメント順に取得します。
func (p *Page) Snapshot(ctx context.Context) ([]entity.Element, error) {
	els, err := p.page.Context(ctx).Elements(mediaSelector)
	if err != nil {
		return nil, fmt.Errorf("rodpage: query media: %w", err)
	}

	out := make([]entity.Element, 0, len(els))
	for _, el := range els {
		res, err := el.Context(ctx).Eval(describeJS)
		if err != nil {
			// スナップショット中に削除された要素は無視する
			p.logger.Debug("rodpage: describe element failed", "error", err)
			continue
		}
		out = append(out, describe(res.Value, &elementHandle{el: el}))
	}
	return out, nil
}

// describe はdescribeJSの結果をElementに変換します。
func describe(v gson.JSON, h media.ElementHandle) entity.Element {
	return entity.Element{
		Tag:           v.Get("tag").Str(),
		Src:           v.Get("src").Str(),
		CurrentSrc:    v.Get("currentSrc").Str(),
		NaturalWidth:  v.Get("naturalWidth").Int(),
		NaturalHeight: v.Get("naturalHeight").Int(),
		Handle:        h,
	}
}

// Mutations はページにMutationObserverを注入し、構造変更のたびに通知します。
// 通知は合流されるため、未処理の通知がある間の変更は1件にまとまります。
func (p *Page) Mutations(ctx context.Context) (<-chan struct{}, error) {
	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(p.page); err != nil {
		return nil, fmt.Errorf("rodpage: add binding: %w", err)
	}

	ch := make(chan struct{}, 1)
	page := p.page.Context(ctx)
	wait := page.EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != BindingName {
			return
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	})

	if _, err := page.Eval(observerJS, BindingName); err != nil {
		return nil, fmt.Errorf("rodpage: inject observer: %w", err)
	}
	// 遷移後の新しいドキュメントにも注入する
	if _, err := page.EvalOnNewDocument(fmt.Sprintf("(%s)(%q)", observerJS, BindingName)); err != nil {
		p.logger.Warn("rodpage: register observer for new documents failed", "error", err)
	}

	go func() {
		wait()
		close(ch)
	}()
	return ch, nil
}

// elementHandle はライブページ上の要素への参照です。
type elementHandle struct {
	el *rod.Element
}

func (h *elementHandle) Bounds(ctx context.Context) (media.Rect, error) {
	res, err := h.el.Context(ctx).Eval(boundsJS)
	if err != nil {
		if ctx.Err() != nil {
			return media.Rect{}, ctx.Err()
		}
		return media.Rect{}, fmt.Errorf("%w: %w", media.ErrElementDetached, err)
	}
	v := res.Value
	if v.Nil() {
		return media.Rect{}, media.ErrElementDetached
	}
	return media.Rect{
		X:      v.Get("x").Num(),
		Y:      v.Get("y").Num(),
		Width:  v.Get("width").Num(),
		Height: v.Get("height").Num(),
	}, nil
}

// Element は描画用に内部のrod.Elementを返します。
func (h *elementHandle) Element() *rod.Element {
	return h.el
}
