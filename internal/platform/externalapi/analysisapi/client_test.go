package analysisapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeptrust/internal/feature/orchestrator/usecase"
	"deeptrust/internal/shared/media"
)

var imageReq = media.AnalysisRequest{URL: "https://example.com/a.jpg", Type: media.Image}

func TestClient_Analyze_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"url":"https://example.com/a.jpg","type":"image"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deepfake_score":91,"explanation":"x","suspicious_regions":[{"x":0.1,"y":0.2,"width":0.3,"height":0.4,"confidence":0.9}],"version":"1.0"}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL + "/"}, server.Client())
	res, err := c.Analyze(context.Background(), imageReq)
	require.NoError(t, err)

	assert.Equal(t, 91, res.DeepfakeScore)
	assert.Equal(t, "x", res.Explanation)
	assert.Equal(t, "1.0", res.Version)
	assert.Equal(t, []media.Region{{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4, Confidence: 0.9}}, res.SuspiciousRegions)
}

func TestClient_Analyze_EmptyRegions(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"deepfake_score":0,"explanation":"authentic","version":"1.0"}`))
	}))
	defer server.Close()

	res, err := NewClient(Config{BaseURL: server.URL}, server.Client()).Analyze(context.Background(), imageReq)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeepfakeScore)
	assert.NotNil(t, res.SuspiciousRegions)
	assert.Empty(t, res.SuspiciousRegions)
}

func TestClient_Analyze_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		body         string
		wantStatus   int
		wantProtocol bool
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, 500, false},
		{"bad request", http.StatusBadRequest, `{"error":"No media URL provided"}`, 400, false},
		{"not json", http.StatusOK, `<html>oops</html>`, 200, true},
		{"missing score", http.StatusOK, `{"explanation":"x"}`, 200, true},
		{"score out of range", http.StatusOK, `{"deepfake_score":150,"explanation":"x"}`, 200, true},
		{"negative score", http.StatusOK, `{"deepfake_score":-1,"explanation":"x"}`, 200, true},
		{"empty explanation", http.StatusOK, `{"deepfake_score":50,"explanation":"","suspicious_regions":[],"version":"1.0"}`, 200, true},
		{"missing explanation", http.StatusOK, `{"deepfake_score":50}`, 200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(Config{BaseURL: server.URL}, server.Client()).Analyze(context.Background(), imageReq)
			require.Error(t, err)

			var svcErr *usecase.ServiceError
			require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %v", err)
			assert.Equal(t, tt.wantStatus, svcErr.StatusCode)
			assert.Equal(t, tt.body, svcErr.Body)
			assert.Equal(t, tt.wantProtocol, errors.Is(err, usecase.ErrProtocol))
			assert.False(t, errors.Is(err, usecase.ErrNetwork))
		})
	}
}

func TestClient_Analyze_ConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := NewClient(Config{BaseURL: baseURL}, nil).Analyze(context.Background(), imageReq)
	assert.ErrorIs(t, err, usecase.ErrNetwork)
	assert.Equal(t, "Could not reach the analysis service", usecase.UserMessage(err))
}

func TestClient_Analyze_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"deepfake_score": 1, "explanation": "x"})
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := c.Analyze(context.Background(), imageReq)
	assert.ErrorIs(t, err, usecase.ErrNetwork)
}
