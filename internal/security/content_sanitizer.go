// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は記事本文・応募キャプションのHTMLをサニタイズし、
// XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 記事保存前とRSSインポート時の両方で使用される。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 見出し・段落・リスト・引用・コード・強調・リンク・画像のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string

	// SanitizeText はHTMLタグを全て除去しプレーンテキストを返す。
	// タイトル・抜粋・キャプションなどタグを許可しないフィールドに使用する。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	htmlPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 本文用ポリシーの内容:
//   - 許可タグ: h2, h3, h4, p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img, figure, figcaption
//   - script, iframe, style等は許可リストに含めないことで自動的に除去される
//   - imgのsrc属性はhttpsスキームのみ許可
//   - aタグには target="_blank" と rel="noopener noreferrer" を強制付与
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h2", "h3", "h4",
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"figure", "figcaption",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &contentSanitizer{
		htmlPolicy: p,
		textPolicy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.htmlPolicy.Sanitize(rawHTML)
}

// SanitizeText はHTMLタグを全て除去しプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return s.textPolicy.Sanitize(raw)
}
