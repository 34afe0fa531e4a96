package popup

// 画面表示テキスト
const (
	LoadingText       = "Detecting media on this page..."
	EmptyText         = "No media detected on this page."
	AnalyzeLabel      = "Analyze"
	AnalyzingLabel    = "Analyzing..."
	ErrorLabel        = "Error"
	ThumbnailFallback = "icons/icon48.png"
)

// ButtonState は行ごとのAnalyzeボタンの状態です。
type ButtonState struct {
	Label    string
	Disabled bool
}

// Row はメディア一覧の1行です。
type Row struct {
	Index     int
	Type      string
	URL       string
	Thumbnail string
	Button    ButtonState
}

// ResultPanel は結果パネルの表示内容です。
type ResultPanel struct {
	Headline    string // "<score>% Deepfake Probability"
	ScoreClass  string // "score-high" など
	Explanation string
}

// View はポップアップの描画先です。
type View interface {
	ShowLoading(text string)
	ShowEmpty(text string)
	ShowMedia(rows []Row)
	SetButton(index int, state ButtonState)
	ShowResult(panel ResultPanel)
}
