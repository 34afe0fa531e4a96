// Package htmldoc は静的なHTMLドキュメントをDocumentProviderとして扱うアダプターです。
// レンダリングを行わないため、画像の本来サイズはwidth/height属性から求めます。
package htmldoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"deeptrust/internal/feature/detection/domain/entity"
	"deeptrust/internal/feature/detection/usecase"
	"deeptrust/internal/shared/media"
)

var _ usecase.DocumentProvider = (*Document)(nil)

// ErrUnexpectedStatus はHTMLの取得で2xx以外が返った場合のエラーです。
var ErrUnexpectedStatus = errors.New("unexpected status fetching document")

// Document はパース済みのHTMLドキュメントです。
type Document struct {
	root *html.Node
	base *url.URL
}

// Parse はHTMLを読み込みます。baseは相対URLの解決に使われ、nilでも構いません。
func Parse(r io.Reader, base *url.URL) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := &Document{root: root, base: base}
	if href := doc.baseHref(); href != "" {
		doc.base = doc.resolveURL(href)
	}
	return doc, nil
}

// Load はファイルパスまたはhttp(s) URLからドキュメントを読み込みます。
func Load(ctx context.Context, client *http.Client, target string) (*Document, error) {
	u, err := url.Parse(target)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetch(ctx, client, u)
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f, nil)
}

func fetch(ctx context.Context, client *http.Client, u *url.URL) (*Document, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return Parse(resp.Body, resp.Request.URL)
}

// Snapshot はドキュメント順にimgとvideo要素を返します。
func (d *Document) Snapshot(ctx context.Context) ([]entity.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []entity.Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Img:
				out = append(out, d.image(n))
			case atom.Video:
				out = append(out, d.video(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out, nil
}

func (d *Document) image(n *html.Node) entity.Element {
	w := dimension(attr(n, "width"))
	h := dimension(attr(n, "height"))
	return entity.Element{
		Tag:           "img",
		Src:           d.resolve(attr(n, "src")),
		NaturalWidth:  w,
		NaturalHeight: h,
		Handle:        staticHandle{rect: media.Rect{Width: float64(w), Height: float64(h)}},
	}
}

func (d *Document) video(n *html.Node) entity.Element {
	el := entity.Element{
		Tag:    "video",
		Src:    d.resolve(attr(n, "src")),
		Handle: staticHandle{rect: media.Rect{Width: float64(dimension(attr(n, "width"))), Height: float64(dimension(attr(n, "height")))}},
	}
	// src属性がない場合は最初の<source>が再生対象になる
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Source {
			if src := attr(c, "src"); src != "" {
				el.CurrentSrc = d.resolve(src)
				break
			}
		}
	}
	if el.CurrentSrc == "" {
		el.CurrentSrc = el.Src
	}
	return el
}

func (d *Document) baseHref() string {
	var href string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Base {
			href = attr(n, "href")
			return href != ""
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	return href
}

func (d *Document) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u := d.resolveURL(raw); u != nil {
		return u.String()
	}
	return raw
}

func (d *Document) resolveURL(raw string) *url.URL {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	if d.base == nil {
		return ref
	}
	return d.base.ResolveReference(ref)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// dimension は"640"や"640px"を整数に変換します。解釈できない値は0です。
func dimension(v string) int {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// staticHandle は静的ドキュメントの要素位置です。レイアウトがないため原点に置きます。
type staticHandle struct {
	rect media.Rect
}

func (h staticHandle) Bounds(ctx context.Context) (media.Rect, error) {
	return h.rect, nil
}
