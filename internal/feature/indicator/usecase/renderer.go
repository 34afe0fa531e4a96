// Package usecase はindicatorフィーチャー（Indicator Renderer）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"deeptrust/internal/feature/indicator/domain/entity"
	"deeptrust/internal/shared/media"
)

// Policy は同じメディアに再度結果が届いたときのバッジの扱いです。
type Policy string

const (
	// PolicyReplace は既存のバッジを取り除いてから描画します。
	PolicyReplace Policy = "replace"
	// PolicyStack は既存のバッジを残したまま重ねて描画します。
	PolicyStack Policy = "stack"
)

// ErrUnknownPolicy は未知のバッジポリシーです。
var ErrUnknownPolicy = errors.New("unknown badge policy")

// ParsePolicy は文字列をPolicyに変換します。空文字はPolicyReplaceです。
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyReplace:
		return PolicyReplace, nil
	case PolicyStack:
		return PolicyStack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// MediaLookup は検出済みリストからURLに一致するレコードを探します。
type MediaLookup interface {
	Find(sourceURL string) (media.DetectionRecord, bool)
}

// Overlay はページ上にバッジを描画する能力です。
type Overlay interface {
	// Draw はバッジを描画し、後でRemoveに渡す識別子を返します。
	Draw(ctx context.Context, badge entity.Badge) (string, error)
	Remove(ctx context.Context, id string) error
}

// Renderer は分析結果をページ上のバッジとして表示します。
type Renderer struct {
	lookup  MediaLookup
	overlay Overlay
	policy  Policy
	logger  *slog.Logger

	mu     sync.Mutex
	badges map[string][]string // SourceURL -> 描画済みバッジID
}

// NewRenderer はRendererを生成します。loggerがnilの場合はslog.Defaultを使います。
func NewRenderer(lookup MediaLookup, overlay Overlay, policy Policy, logger *slog.Logger) *Renderer {
	if policy == "" {
		policy = PolicyReplace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		lookup:  lookup,
		overlay: overlay,
		policy:  policy,
		logger:  logger,
		badges:  make(map[string][]string),
	}
}

// ShowResult は検出リスト中のsourceURLに一致する要素にバッジを表示します。
// 一致する要素がない、または要素が既に削除されている場合は何もしません。
func (r *Renderer) ShowResult(ctx context.Context, sourceURL string, score int, explanation string) error {
	if err := media.ValidateScore(score); err != nil {
		return err
	}

	rec, ok := r.lookup.Find(sourceURL)
	if !ok || rec.Element == nil {
		r.logger.Debug("no detected media for result", "url", sourceURL)
		return nil
	}

	rect, err := rec.Element.Bounds(ctx)
	if errors.Is(err, media.ErrElementDetached) {
		r.logger.Debug("detected media is no longer attached", "url", sourceURL)
		return nil
	}
	if err != nil {
		return fmt.Errorf("locate media element: %w", err)
	}

	severity := media.SeverityOf(score)
	badge := entity.Badge{
		SourceURL: sourceURL,
		Score:     score,
		Severity:  severity,
		Text:      entity.BadgeText(score),
		Title:     media.PlainText(explanation),
		Rect:      rect,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == PolicyReplace {
		for _, id := range r.badges[sourceURL] {
			if err := r.overlay.Remove(ctx, id); err != nil {
				r.logger.Warn("failed to remove previous badge", "url", sourceURL, "badge_id", id, "error", err)
			}
		}
		delete(r.badges, sourceURL)
	}

	id, err := r.overlay.Draw(ctx, badge)
	if err != nil {
		return fmt.Errorf("draw badge: %w", err)
	}
	r.badges[sourceURL] = append(r.badges[sourceURL], id)

	r.logger.Info("badge rendered", "url", sourceURL, "score", score, "severity", severity)
	return nil
}

// BadgeCount はsourceURLに対して表示中のバッジ数を返します。
func (r *Renderer) BadgeCount(sourceURL string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.badges[sourceURL])
}
