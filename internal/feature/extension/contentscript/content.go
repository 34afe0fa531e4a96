// Package contentscript はページコンテキストのアクターです。
// Media DetectorとIndicator Rendererを所有し、getMediaとshowResultに応答します。
package contentscript

import (
	"context"
	"log/slog"

	"deeptrust/internal/feature/extension/message"
	"deeptrust/internal/platform/messaging"
	"deeptrust/internal/shared/media"
)

// Detector はページ上のメディアを検出します。
type Detector interface {
	Detect(ctx context.Context) ([]media.DetectionRecord, error)
	Current() []media.DetectionRecord
}

// Renderer は結果バッジを表示します。
type Renderer interface {
	ShowResult(ctx context.Context, sourceURL string, score int, explanation string) error
}

// Registrar はエンドポイントを登録します。
type Registrar interface {
	Register(name string, h messaging.Handler) error
	Unregister(name string)
}

// ContentScript は1つのタブのページコンテキストです。
type ContentScript struct {
	tab      string
	detector Detector
	renderer Renderer
	logger   *slog.Logger
}

// New はContentScriptを生成します。
func New(tab string, detector Detector, renderer Renderer, logger *slog.Logger) *ContentScript {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentScript{
		tab:      tab,
		detector: detector,
		renderer: renderer,
		logger:   logger.With("context", message.PageEndpoint(tab)),
	}
}

// Endpoint はこのページのエンドポイント名です。
func (c *ContentScript) Endpoint() string {
	return message.PageEndpoint(c.tab)
}

// Attach はバスにエンドポイントを登録します。返される関数で登録を解除します。
func (c *ContentScript) Attach(r Registrar) (detach func(), err error) {
	if err := r.Register(c.Endpoint(), c.Handle); err != nil {
		return nil, err
	}
	return func() { r.Unregister(c.Endpoint()) }, nil
}

// Handle はメッセージを1件処理します。すべて同期的に応答します。
func (c *ContentScript) Handle(ctx context.Context, msg messaging.Message, respond messaging.Respond) bool {
	switch msg.Action {
	case message.ActionGetMedia:
		c.handleGetMedia(ctx, respond)
	case message.ActionShowResult:
		c.handleShowResult(ctx, msg)
	default:
		c.logger.Debug("ignoring message", "action", msg.Action, "from", msg.From)
	}
	return false
}

func (c *ContentScript) handleGetMedia(ctx context.Context, respond messaging.Respond) {
	records, err := c.detector.Detect(ctx)
	if err != nil {
		// 再検出に失敗した場合は直前のリストで答える
		c.logger.Warn("media detection failed", "error", err)
		records = c.detector.Current()
	}
	if records == nil {
		records = []media.DetectionRecord{}
	}
	respond(message.MediaList{Media: records})
}

func (c *ContentScript) handleShowResult(ctx context.Context, msg messaging.Message) {
	var req message.ShowResult
	if err := msg.Decode(&req); err != nil {
		c.logger.Warn("invalid showResult message", "error", err, "from", msg.From)
		return
	}
	if err := c.renderer.ShowResult(ctx, req.URL, req.Score, req.Explanation); err != nil {
		c.logger.Warn("failed to show result", "error", err, "url", req.URL, "score", req.Score)
	}
}
