// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deeptrust/internal/api"
)

// HealthHandler は /healthz を処理します。
type HealthHandler struct {
	version string
}

// NewHealthHandler は応答に分析バージョンを含めるHealthHandlerを生成します。
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health はキャッシュを防止し、HEADではボディを返しません。
// 拡張機能の接続確認にも使われるため、OPTIONSは204で応答します。
func (h *HealthHandler) Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, api.HealthResponse{Status: "ok", Version: h.version})
	}
}
