// Package api はHTTP APIのリクエスト/レスポンス型を定義します。
package api

import "deeptrust/internal/shared/media"

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnalyzeRequest は POST /api/analyze のリクエストボディです。
type AnalyzeRequest struct {
	URL  string          `json:"url"`
	Type media.MediaType `json:"type"`
}

// AnalyzeResponse は POST /api/analyze の成功レスポンスです。
type AnalyzeResponse = media.AnalysisResult

// HealthResponse は /healthz のレスポンスです。
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
