package media

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText はサービスから受け取った説明文からマークアップを取り除きます。
// 表示側はテキストとして扱うため、エスケープは元に戻して返します。
func PlainText(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}
