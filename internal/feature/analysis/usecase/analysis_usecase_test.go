package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"deeptrust/internal/feature/analysis/usecase"
	"deeptrust/internal/shared/media"
)

// ErrAPI はモックと期待値の間で共有されるセンチネルエラーです。
var ErrAPI = errors.New("scoring error")

// mockScoringProvider はScoringProviderインターフェースのモック実装です。
type mockScoringProvider struct {
	ScoreFunc  func(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error)
	ScoreCalls int
}

func (m *mockScoringProvider) Score(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
	m.ScoreCalls++
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, req)
	}
	return nil, errors.New("ScoreFunc is not implemented")
}

func TestAnalysisUsecase_Analyze(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name            string
		req             media.AnalysisRequest
		mockFunc        func(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error)
		expectedScore   int
		expectedVersion string
		expectedErr     error
		expectedCalls   int
	}{
		{
			name: "success: version defaulted",
			req:  media.AnalysisRequest{URL: "https://example.com/a.png", Type: media.Image},
			mockFunc: func(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
				return &media.AnalysisResult{DeepfakeScore: 91, Explanation: "x"}, nil
			},
			expectedScore:   91,
			expectedVersion: "1.0",
			expectedCalls:   1,
		},
		{
			name: "success: provider version kept",
			req:  media.AnalysisRequest{URL: "https://example.com/a.mp4", Type: media.Video},
			mockFunc: func(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
				return &media.AnalysisResult{DeepfakeScore: 10, Explanation: "x", Version: "2.0"}, nil
			},
			expectedScore:   10,
			expectedVersion: "2.0",
			expectedCalls:   1,
		},
		{
			name:        "error: empty url",
			req:         media.AnalysisRequest{URL: "   ", Type: media.Image},
			expectedErr: usecase.ErrMissingURL,
		},
		{
			name: "error: provider fails",
			req:  media.AnalysisRequest{URL: "https://example.com/a.png"},
			mockFunc: func(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
				return nil, ErrAPI
			},
			expectedErr:   ErrAPI,
			expectedCalls: 1,
		},
		{
			name: "error: score out of range is not clamped",
			req:  media.AnalysisRequest{URL: "https://example.com/a.png"},
			mockFunc: func(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
				return &media.AnalysisResult{DeepfakeScore: 150, Explanation: "x"}, nil
			},
			expectedErr:   media.ErrScoreOutOfRange,
			expectedCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &mockScoringProvider{ScoreFunc: tc.mockFunc}
			uc := usecase.NewAnalysisUsecase(provider, "")

			result, err := uc.Analyze(ctx, tc.req)

			if provider.ScoreCalls != tc.expectedCalls {
				t.Errorf("provider calls: got %d, want %d", provider.ScoreCalls, tc.expectedCalls)
			}
			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Fatalf("expected error %v, got %v", tc.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.DeepfakeScore != tc.expectedScore {
				t.Errorf("score mismatch: got %d, want %d", result.DeepfakeScore, tc.expectedScore)
			}
			if result.Version != tc.expectedVersion {
				t.Errorf("version mismatch: got %q, want %q", result.Version, tc.expectedVersion)
			}
			if result.SuspiciousRegions == nil {
				t.Error("suspicious regions should be an empty slice, got nil")
			}
		})
	}
}

func TestAnalysisUsecase_TrimsURL(t *testing.T) {
	provider := &mockScoringProvider{
		ScoreFunc: func(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
			if strings.TrimSpace(req.URL) != req.URL {
				t.Errorf("url not trimmed: %q", req.URL)
			}
			return &media.AnalysisResult{DeepfakeScore: 1, Explanation: "x"}, nil
		},
	}
	uc := usecase.NewAnalysisUsecase(provider, "3.1")

	result, err := uc.Analyze(context.Background(), media.AnalysisRequest{URL: " https://example.com/a.png "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Version != "3.1" {
		t.Errorf("version mismatch: got %q", result.Version)
	}
}
