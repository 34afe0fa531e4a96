package analysisapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"deeptrust/internal/feature/orchestrator/usecase"
	"deeptrust/internal/platform/externalapi/analysisapi/dto"
	"deeptrust/internal/shared/media"
)

// maxBodyBytes はレスポンスボディの読み込み上限です。
const maxBodyBytes = 1 << 20

// Client はAnalysis ServiceへのAnalysisService実装です。
type Client struct {
	cfg    Config
	client *http.Client
}

// ClientがAnalysisServiceを実装していることをコンパイル時に検証します。
var _ usecase.AnalysisService = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, client: client}
}

// Analyze はPOST /api/analyze を1回だけ呼び出し、結果を返します。
// 到達できない場合はErrNetwork、2xx以外やボディ不正の場合は*ServiceErrorを返します。
func (c *Client) Analyze(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
	body, err := json.Marshal(dto.AnalyzeRequest{URL: req.URL, Type: string(req.Type)})
	if err != nil {
		return nil, err
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + AnalyzePath

	// リクエストオブジェクトを作成
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// リクエストを実行
	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrNetwork, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", usecase.ErrNetwork, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &usecase.ServiceError{StatusCode: res.StatusCode, Body: string(raw)}
	}

	// JSONレスポンスをDTOにデコード
	var out dto.AnalyzeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, protocolError(res.StatusCode, raw, err)
	}
	if out.DeepfakeScore == nil {
		return nil, protocolError(res.StatusCode, raw, fmt.Errorf("missing deepfake_score"))
	}

	// ドメインモデルに変換
	regions := make([]media.Region, 0, len(out.SuspiciousRegions))
	for _, r := range out.SuspiciousRegions {
		regions = append(regions, media.Region{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Confidence: r.Confidence})
	}
	result := &media.AnalysisResult{
		DeepfakeScore:     *out.DeepfakeScore,
		Explanation:       out.Explanation,
		SuspiciousRegions: regions,
		Version:           out.Version,
	}
	if err := result.Validate(); err != nil {
		return nil, protocolError(res.StatusCode, raw, err)
	}
	return result, nil
}

func protocolError(status int, body []byte, cause error) error {
	return &usecase.ServiceError{
		StatusCode: status,
		Body:       string(body),
		Err:        fmt.Errorf("%w: %w", usecase.ErrProtocol, cause),
	}
}
