package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	analysishandler "deeptrust/internal/feature/analysis/transport/handler"
	"deeptrust/internal/platform/http/handler"
)

// CORSConfig はAnalysis ServiceのCORS設定を返します。
// ブラウザ拡張からの呼び出しのため、全オリジンを許可します。
func CORSConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodOptions,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodPost,
			http.MethodPut,
		},
		AllowHeaders:              []string{"Content-Type"},
		AllowCredentials:          true,
		OptionsResponseStatusCode: http.StatusOK,
	}
}

// StaticCORSHeaders はOriginヘッダーのないリクエストにもCORSヘッダーを付与します。
// gin-contrib/corsはOriginがない場合は何もしないため、その前段で設定します。
func StaticCORSHeaders(cfg cors.Config) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowMethods, ",")
	headers := strings.Join(cfg.AllowHeaders, ",")
	return func(c *gin.Context) {
		if c.GetHeader("Origin") == "" {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
		}
		c.Next()
	}
}

func NewRouter(analysis *analysishandler.AnalysisHandler, health *handler.HealthHandler) *gin.Engine {
	r := gin.Default()

	// CORS（プリフライトは200で空ボディ）
	corsCfg := CORSConfig()
	r.Use(StaticCORSHeaders(corsCfg), cors.New(corsCfg))

	// 導通確認用
	r.GET("/healthz", health.Health)
	r.HEAD("/healthz", health.Health)

	// 分析API。メソッドの振り分けはハンドラー側で行う
	r.Any("/api/analyze", analysis.Analyze)

	return r
}
