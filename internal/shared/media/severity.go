package media

// Severity はスコアから導かれる表示用の重大度バンドです。
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

const (
	// HighThreshold を超えるスコアは high。
	HighThreshold = 70
	// MediumThreshold を超えるスコアは medium。
	MediumThreshold = 40
)

// SeverityOf はスコアを重大度バンドに分類します。
// score > 70 は high、40 < score <= 70 は medium、それ以外は low です。
func SeverityOf(score int) Severity {
	switch {
	case score > HighThreshold:
		return SeverityHigh
	case score > MediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Color はバッジの背景色です。
func (s Severity) Color() string {
	switch s {
	case SeverityHigh:
		return "#ff4444"
	case SeverityMedium:
		return "#ff9944"
	default:
		return "#44ff44"
	}
}

// ScoreClass はポップアップの結果パネルで使うCSSクラス名です。
func (s Severity) ScoreClass() string {
	return "score-" + string(s)
}
