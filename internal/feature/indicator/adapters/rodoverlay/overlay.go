// Package rodoverlay はライブページに絶対配置のdivとしてバッジを挿入するOverlayです。
package rodoverlay

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/google/uuid"

	"deeptrust/internal/feature/indicator/domain/entity"
	"deeptrust/internal/feature/indicator/usecase"
)

const drawJS = `(id, left, top, color, text, title) => {
	const badge = document.createElement("div");
	badge.id = id;
	badge.dataset.deeptrust = "badge";
	badge.textContent = text;
	badge.title = title;
	Object.assign(badge.style, {
		position: "absolute",
		left: left + "px",
		top: top + "px",
		background: color,
		color: "white",
		padding: "5px 10px",
		borderRadius: "4px",
		fontSize: "12px",
		fontWeight: "bold",
		zIndex: "10000",
		boxShadow: "0 2px 5px rgba(0,0,0,0.2)",
		pointerEvents: "auto",
	});
	document.body.appendChild(badge);
}`

const removeJS = `(id) => {
	const badge = document.getElementById(id);
	if (badge) {
		badge.remove();
	}
}`

var _ usecase.Overlay = (*Overlay)(nil)

// Overlay はrod.Pageにバッジを描画します。
type Overlay struct {
	page *rod.Page
}

func New(page *rod.Page) *Overlay {
	return &Overlay{page: page}
}

func (o *Overlay) Draw(ctx context.Context, badge entity.Badge) (string, error) {
	id := "deeptrust-" + uuid.NewString()
	_, err := o.page.Context(ctx).Eval(drawJS, id, badge.Rect.X, badge.Rect.Y, badge.Color(), badge.Text, badge.Title)
	if err != nil {
		return "", fmt.Errorf("rodoverlay: draw: %w", err)
	}
	return id, nil
}

func (o *Overlay) Remove(ctx context.Context, id string) error {
	if _, err := o.page.Context(ctx).Eval(removeJS, id); err != nil {
		return fmt.Errorf("rodoverlay: remove: %w", err)
	}
	return nil
}
