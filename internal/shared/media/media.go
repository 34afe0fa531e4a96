// Package media は拡張機能とAnalysis Serviceの間で共有されるメディア・分析結果のモデルを定義します。
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// MediaType は検出されたメディア要素の種別です。
type MediaType string

const (
	// Image は <img> 要素を表します。
	Image MediaType = "image"
	// Video は <video> 要素を表します。
	Video MediaType = "video"
)

// Valid はMediaTypeが既知の値かどうかを返します。
func (t MediaType) Valid() bool {
	return t == Image || t == Video
}

// ParseMediaType は文字列をMediaTypeに変換します。
func ParseMediaType(s string) (MediaType, error) {
	t := MediaType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown media type %q", s)
	}
	return t, nil
}

const (
	// MinScore はdeepfakeスコアの下限です。
	MinScore = 0
	// MaxScore はdeepfakeスコアの上限です。
	MaxScore = 100
)

var (
	// ErrScoreOutOfRange はスコアが [0,100] の範囲外であることを示します。
	// 受信側でクランプせず、サービス側の契約違反として扱います。
	ErrScoreOutOfRange = errors.New("deepfake score out of range")

	// ErrEmptyExplanation は説明文が空であることを示します。
	ErrEmptyExplanation = errors.New("explanation is empty")

	// ErrElementDetached は要素がドキュメントから削除済みであることを示します。
	ErrElementDetached = errors.New("element is no longer attached")
)

// ValidateScore はスコアが契約範囲内かどうかを検証します。
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: %d", ErrScoreOutOfRange, score)
	}
	return nil
}

// ElementHandle はページ上の生きた要素への非所有参照です。
// 要素がドキュメントから削除されると参照は古くなり、Boundsはエラーを返します。
type ElementHandle interface {
	// Bounds は要素の現在の位置をドキュメント座標（client rect + scroll offset）で返します。
	Bounds(ctx context.Context) (Rect, error)
}

// Rect はドキュメント座標系の矩形です。
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// DetectionRecord はページ上で見つかったメディア要素1件を表します。
type DetectionRecord struct {
	MediaType MediaType     `json:"type"`
	SourceURL string        `json:"url"`
	Element   ElementHandle `json:"-"`
}

// AnalysisRequest はOrchestratorからAnalysis Serviceへ送られる分析依頼です。
type AnalysisRequest struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

// Region は疑わしい領域の相対バウンディングボックスです。
type Region struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// AnalysisResult は1回の分析の結果です。表示のために一度だけ消費され、永続化されません。
type AnalysisResult struct {
	DeepfakeScore     int      `json:"deepfake_score"`
	Explanation       string   `json:"explanation"`
	SuspiciousRegions []Region `json:"suspicious_regions"`
	Version           string   `json:"version"`
}

// Validate は結果が表示側に渡せる形かどうかを検証します。
func (r *AnalysisResult) Validate() error {
	if err := ValidateScore(r.DeepfakeScore); err != nil {
		return err
	}
	if r.Explanation == "" {
		return ErrEmptyExplanation
	}
	return nil
}

// MarshalJSON は suspicious_regions を常に配列として出力します。
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	type alias AnalysisResult
	if r.SuspiciousRegions == nil {
		r.SuspiciousRegions = []Region{}
	}
	return json.Marshal(alias(r))
}
