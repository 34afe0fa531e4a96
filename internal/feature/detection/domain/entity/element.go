// Package entity はdetectionフィーチャーのドメインモデルを定義します。
package entity

import "deeptrust/internal/shared/media"

// Element はドキュメントスナップショット中のメディア候補要素1件です。
type Element struct {
	Tag           string // 小文字のタグ名（"img", "video"）
	Src           string // src属性から解決したURL
	CurrentSrc    string // 再生中のソース（videoのみ）
	NaturalWidth  int    // 本来の幅（CSS px）
	NaturalHeight int    // 本来の高さ（CSS px）
	Handle        media.ElementHandle
}
