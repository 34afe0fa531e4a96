// Package background はバックグラウンドワーカーのアクターです。
// analyzeMediaをOrchestratorに渡し、コンテキストメニューからの分析も受け付けます。
package background

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"deeptrust/internal/feature/extension/message"
	orchestrator "deeptrust/internal/feature/orchestrator/usecase"
	"deeptrust/internal/platform/messaging"
	"deeptrust/internal/shared/media"
)

// コンテキストメニューの定義
const (
	ContextMenuID    = "analyzeWithDeepTRUST"
	ContextMenuTitle = "Analyze with DeepTRUST"
)

// ContextMenuContexts はメニューを表示する要素の種類です。
var ContextMenuContexts = []media.MediaType{media.Image, media.Video}

// Analyzer は分析を実行します（Orchestrator）。
type Analyzer interface {
	Analyze(ctx context.Context, req media.AnalysisRequest, origin string) (*media.AnalysisResult, error)
}

// Bus はワーカーが使うメッセージングの能力です。
type Bus interface {
	Register(name string, h messaging.Handler) error
	Unregister(name string)
	Send(ctx context.Context, from, to string, msg any) error
}

// Worker はバックグラウンドのコンテキストです。
type Worker struct {
	bus      Bus
	analyzer Analyzer
	logger   *slog.Logger

	// ctx はワーカーの寿命。非同期の分析はこれに従う
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ orchestrator.ResultSink = (*Worker)(nil)

// New はWorkerを生成します。analyzerはSetAnalyzerで後から設定することもできます。
func New(bus Bus, analyzer Analyzer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		analyzer: analyzer,
		logger:   logger.With("context", message.BackgroundEndpoint),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetAnalyzer はAnalyzerを設定します。WorkerがOrchestratorのResultSinkを兼ねるため、
// 相互参照の組み立てに使います。Start前に呼び出してください。
func (w *Worker) SetAnalyzer(a Analyzer) {
	w.analyzer = a
}

// Start はバックグラウンドのエンドポイントを登録します。
func (w *Worker) Start() error {
	return w.bus.Register(message.BackgroundEndpoint, w.Handle)
}

// Stop はエンドポイントを解除し、実行中の分析の完了を待ちます。
func (w *Worker) Stop() {
	w.bus.Unregister(message.BackgroundEndpoint)
	w.cancel()
	w.wg.Wait()
}

// Handle はメッセージを1件処理します。analyzeMediaは非同期に応答するため
// 返答チャネルを開いたままにします。
func (w *Worker) Handle(ctx context.Context, msg messaging.Message, respond messaging.Respond) bool {
	if msg.Action != message.ActionAnalyzeMedia {
		w.logger.Debug("ignoring message", "action", msg.Action, "from", msg.From)
		return false
	}

	var req message.AnalyzeMedia
	if err := msg.Decode(&req); err != nil {
		respond(message.ErrorReply{Error: "invalid analyzeMedia message"})
		return false
	}

	origin := ""
	if strings.HasPrefix(msg.From, message.PageEndpoint("")) {
		origin = msg.From
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		res, err := w.analyzer.Analyze(w.ctx, media.AnalysisRequest{URL: req.URL, Type: req.Type}, origin)
		if err != nil {
			respond(message.ErrorReply{Error: orchestrator.UserMessage(err)})
			return
		}
		respond(res)
	}()
	return true
}

// OnContextMenu はコンテキストメニューがクリックされたときの処理です。
// 結果はタブのページに表示されます。
func (w *Worker) OnContextMenu(ctx context.Context, menuItemID, tab, srcURL string, mediaType media.MediaType) (*media.AnalysisResult, error) {
	if menuItemID != ContextMenuID {
		return nil, nil
	}
	res, err := w.analyzer.Analyze(ctx, media.AnalysisRequest{URL: srcURL, Type: mediaType}, message.PageEndpoint(tab))
	if err != nil {
		w.logger.Error("context menu analysis failed", "error", err, "url", srcURL, "tab", tab)
		return nil, err
	}
	return res, nil
}

// ShowResult は結果をページのIndicator Rendererへ送ります（返答なし）。
func (w *Worker) ShowResult(ctx context.Context, origin, sourceURL string, result *media.AnalysisResult) error {
	return w.bus.Send(ctx, message.BackgroundEndpoint, origin, message.NewShowResult(sourceURL, result))
}
