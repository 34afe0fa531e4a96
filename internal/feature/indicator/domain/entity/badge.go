// Package entity はindicatorフィーチャーのドメインモデルを定義します。
package entity

import (
	"fmt"

	"deeptrust/internal/shared/media"
)

// Badge は要素の上に重ねて表示する結果バッジです。
type Badge struct {
	SourceURL string
	Score     int
	Severity  media.Severity
	Text      string     // "DeepTRUST: <score>% fake"
	Title     string     // ホバー時に表示する説明文（サニタイズ済み）
	Rect      media.Rect // ドキュメント座標での配置位置
}

// Color は深刻度に応じた背景色です。
func (b Badge) Color() string {
	return b.Severity.Color()
}

// BadgeText はバッジの表示テキストを返します。
func BadgeText(score int) string {
	return fmt.Sprintf("DeepTRUST: %d%% fake", score)
}
