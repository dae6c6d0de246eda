package security

import (
	"errors"
	"net/url"
	"strings"
)

// 添付URLの最大長。
const maxLinkLength = 2048

// 添付URL検証のエラー。
var (
	ErrLinkTooLong      = errors.New("url is too long")
	ErrLinkUnparseable  = errors.New("url cannot be parsed")
	ErrLinkScheme       = errors.New("only http and https urls are allowed")
	ErrLinkMissingHost  = errors.New("url has no host")
	ErrLinkRelativePath = errors.New("path must be absolute")
	ErrLinkCredentials  = errors.New("url must not embed credentials")
)

// ValidateAttachmentURL はレポートの添付URLを検証し、正規化した値を返す。
// 受け付けるのはhttp(s)の絶対URL、または"/"で始まるサーバー内パス。
// サーバーはこのURLを取得しないため、宛先ホストの検査は行わない。
func ValidateAttachmentURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxLinkLength {
		return "", ErrLinkTooLong
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrLinkUnparseable
	}

	if u.Scheme == "" {
		// "//host/path"はプロトコル相対URLとして扱われるため拒否する
		if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || u.Host != "" {
			return "", ErrLinkRelativePath
		}
		return u.String(), nil
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", ErrLinkScheme
	}
	if u.Host == "" {
		return "", ErrLinkMissingHost
	}
	if u.User != nil {
		return "", ErrLinkCredentials
	}
	return u.String(), nil
}
