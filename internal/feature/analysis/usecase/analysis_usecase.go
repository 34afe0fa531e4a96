// Package usecase はanalysisフィーチャー（Analysis Service）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deeptrust/internal/shared/media"
)

// DefaultVersion はレスポンスの version フィールドの既定値です。
const DefaultVersion = "1.0"

var (
	// ErrMissingURL はメディアURLが指定されていないことを示します。
	ErrMissingURL = errors.New("no media URL provided")

	// ErrInvalidResult はScoringProviderが契約に反する結果を返したことを示します。
	ErrInvalidResult = errors.New("scoring provider returned an invalid result")
)

// ScoringProvider はメディアのdeepfakeスコアを算出するインターフェースです。
// 現在の実装はランダムな固定テーブルですが、実モデルに差し替えられるようにしています。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ScoringProvider interface {
	// Score はリクエストされたメディアの分析結果を返します。
	Score(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error)
}

// analysisUsecase は分析リクエストの検証とスコアリングを行います。
type analysisUsecase struct {
	provider ScoringProvider
	version  string
}

// NewAnalysisUsecase はanalysisUsecaseの新しいインスタンスを生成します。
// versionが空の場合は DefaultVersion を使用します。
func NewAnalysisUsecase(provider ScoringProvider, version string) *analysisUsecase {
	if version == "" {
		version = DefaultVersion
	}
	return &analysisUsecase{provider: provider, version: version}
}

// Analyze はリクエストを検証し、ScoringProviderで結果を生成します。
func (u *analysisUsecase) Analyze(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return nil, ErrMissingURL
	}

	result, err := u.provider.Score(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scoring failed for %q: %w", req.URL, err)
	}
	if result == nil {
		return nil, ErrInvalidResult
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}

	if result.Version == "" {
		result.Version = u.version
	}
	if result.SuspiciousRegions == nil {
		result.SuspiciousRegions = []media.Region{}
	}
	return result, nil
}
