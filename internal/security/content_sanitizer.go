// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は学生の提出本文や教員のフィードバックに含まれるHTMLをサニタイズし、
// 教員画面・学生画面でのXSSを防ぐ。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全な書式タグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 書式タグ（p, br, ul, ol, li, blockquote, pre, code, strong, em, sub, sup）と
	// httpsのリンクのみを通過させ、script, iframe, style, imgおよびon*イベント属性を除去する。
	// 前後の空白は取り除く。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

var _ ContentSanitizerService = (*contentSanitizer)(nil)

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, sub, sup, a
//   - aタグ: httpsの絶対URLのみ、target="_blank" と rel="noopener noreferrer" を自動付与
//   - 画像は許可しない（添付はarchivo_urlで行う）
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "sub", "sup",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return strings.TrimSpace(s.policy.Sanitize(rawHTML))
}
