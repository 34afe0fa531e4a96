// Package usecase はorchestratorフィーチャー（バックグラウンドのコーディネーター）の
// ビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"deeptrust/internal/shared/media"
)

// RequestState は1件の分析リクエストの状態です。
type RequestState string

const (
	StateIdle      RequestState = "idle"
	StateRequested RequestState = "requested"
	StateSucceeded RequestState = "succeeded"
	StateFailed    RequestState = "failed"
)

// AnalysisService はリモートのAnalysis Serviceを呼び出します。
type AnalysisService interface {
	Analyze(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error)
}

// ResultSink は分析結果をページ（Indicator Renderer）へ届けます。
type ResultSink interface {
	ShowResult(ctx context.Context, origin string, sourceURL string, result *media.AnalysisResult) error
}

// Orchestrator は分析リクエストを仲介し、結果を要求元とページへ返します。
// 状態を持たないため、並行に呼び出せます。
type Orchestrator struct {
	service AnalysisService
	sink    ResultSink
	logger  *slog.Logger
}

// NewOrchestrator はOrchestratorを生成します。sinkがnilの場合、ページへの通知は行いません。
func NewOrchestrator(service AnalysisService, sink ResultSink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{service: service, sink: sink, logger: logger}
}

// Analyze はAnalysis Serviceに1回だけリクエストし、結果を返します。
// originがページのコンテキストを指す場合は、そのページにも結果を通知します。
// リトライは行いません。
func (o *Orchestrator) Analyze(ctx context.Context, req media.AnalysisRequest, origin string) (*media.AnalysisResult, error) {
	log := o.logger.With("request_id", uuid.NewString(), "url", req.URL, "type", req.Type)
	log.Debug("analysis request", "state", StateIdle)

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		log.Warn("analysis rejected", "state", StateFailed, "error", ErrMissingURL)
		return nil, ErrMissingURL
	}

	log.Info("analysis request", "state", StateRequested)
	res, err := o.service.Analyze(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNetwork) {
			log.Error("analysis service unreachable", "state", StateFailed, "error", err)
		} else {
			log.Warn("analysis failed", "state", StateFailed, "error", err)
		}
		return nil, err
	}
	if res == nil {
		svcErr := &ServiceError{Err: fmt.Errorf("%w: empty result", ErrProtocol)}
		log.Warn("analysis failed", "state", StateFailed, "error", svcErr)
		return nil, svcErr
	}
	if err := res.Validate(); err != nil {
		svcErr := &ServiceError{StatusCode: 200, Err: fmt.Errorf("%w: %w", ErrProtocol, err)}
		log.Warn("analysis failed", "state", StateFailed, "error", svcErr)
		return nil, svcErr
	}

	log.Info("analysis completed", "state", StateSucceeded, "score", res.DeepfakeScore)

	if origin != "" && o.sink != nil {
		if err := o.sink.ShowResult(ctx, origin, req.URL, res); err != nil {
			// ページ側が閉じている場合など。要求元への返答には影響しない
			log.Warn("failed to deliver result to page", "origin", origin, "error", err)
		}
	}
	return res, nil
}
