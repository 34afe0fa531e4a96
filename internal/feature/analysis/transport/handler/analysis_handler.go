// Package handler はanalysisフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"deeptrust/internal/api"
	"deeptrust/internal/feature/analysis/usecase"
	"deeptrust/internal/shared/media"
)

// AnalysisUsecase は分析ユースケースのインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type AnalysisUsecase interface {
	Analyze(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error)
}

// AnalysisHandler は /api/analyze のHTTPリクエストを処理します。
type AnalysisHandler struct {
	uc AnalysisUsecase
}

// NewAnalysisHandler はAnalysisHandlerの新しいインスタンスを生成します。
func NewAnalysisHandler(uc AnalysisUsecase) *AnalysisHandler {
	return &AnalysisHandler{uc: uc}
}

// Analyze はメディアのdeepfakeスコアを返します。
//
// エンドポイント: /api/analyze（全メソッドをこのハンドラーで受ける）
//   - OPTIONS: プリフライト。200、ボディなし
//   - POST: {"url","type"} を受け取り分析結果を返す
//   - その他: 405 {"error":"Method not allowed"}
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
	case http.MethodPost:
		h.analyze(c)
	default:
		c.JSON(http.StatusMethodNotAllowed, api.ErrorResponse{Error: "Method not allowed"})
	}
}

func (h *AnalysisHandler) analyze(c *gin.Context) {
	var req api.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("analyze request validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	result, err := h.uc.Analyze(c.Request.Context(), media.AnalysisRequest{URL: req.URL, Type: req.Type})
	if err != nil {
		if errors.Is(err, usecase.ErrMissingURL) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No media URL provided"})
			return
		}
		slog.Error("analysis failed", "error", err, "url", req.URL, "type", req.Type)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "analysis failed"})
		return
	}

	slog.Info("analysis completed", "url", req.URL, "type", req.Type, "score", result.DeepfakeScore)
	c.JSON(http.StatusOK, result)
}
