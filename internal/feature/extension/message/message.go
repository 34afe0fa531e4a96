// Package message はコンテキスト間でやり取りするメッセージの契約を定義します。
// JSONの形はバックグラウンド・ページ・ポップアップ間の互換性のためにそのまま維持します。
package message

import (
	"encoding/json"
	"errors"

	"deeptrust/internal/shared/media"
)

// アクション名
const (
	ActionAnalyzeMedia = "analyzeMedia"
	ActionGetMedia     = "getMedia"
	ActionShowResult   = "showResult"
)

// BackgroundEndpoint はバックグラウンドワーカーのエンドポイント名です。
const BackgroundEndpoint = "background"

// PageEndpoint はタブのページコンテキスト（コンテンツスクリプト）のエンドポイント名です。
func PageEndpoint(tab string) string {
	return "page:" + tab
}

// PopupEndpoint はタブに紐づくポップアップの送信元名です。
func PopupEndpoint(tab string) string {
	return "popup:" + tab
}

// AnalyzeMedia は {"action":"analyzeMedia","url","type"} です。
type AnalyzeMedia struct {
	Action string          `json:"action"`
	URL    string          `json:"url"`
	Type   media.MediaType `json:"type"`
}

func NewAnalyzeMedia(url string, t media.MediaType) AnalyzeMedia {
	return AnalyzeMedia{Action: ActionAnalyzeMedia, URL: url, Type: t}
}

// GetMedia は {"action":"getMedia"} です。
type GetMedia struct {
	Action string `json:"action"`
}

func NewGetMedia() GetMedia {
	return GetMedia{Action: ActionGetMedia}
}

// MediaList はgetMediaへの返答 {"media":[{"type","url"}, ...]} です。
type MediaList struct {
	Media []media.DetectionRecord `json:"media"`
}

// ShowResult は {"action":"showResult","url","score","explanation"} です。返答はありません。
type ShowResult struct {
	Action      string `json:"action"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

func NewShowResult(url string, result *media.AnalysisResult) ShowResult {
	return ShowResult{
		Action:      ActionShowResult,
		URL:         url,
		Score:       result.DeepfakeScore,
		Explanation: result.Explanation,
	}
}

// ErrorReply はanalyzeMediaが失敗したときの返答 {"error": "..."} です。
type ErrorReply struct {
	Error string `json:"error"`
}

// ErrNoReply は返答がnull（ハンドラーが応答しなかった）であることを示します。
var ErrNoReply = errors.New("no reply")

// ReplyError はanalyzeMediaへの返答に含まれていたエラーです。
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// DecodeAnalysisReply はanalyzeMediaへの返答を結果またはエラーに変換します。
func DecodeAnalysisReply(raw json.RawMessage) (*media.AnalysisResult, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNoReply
	}

	var errReply ErrorReply
	if err := json.Unmarshal(raw, &errReply); err != nil {
		return nil, err
	}
	if errReply.Error != "" {
		return nil, &ReplyError{Message: errReply.Error}
	}

	var res media.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}
