package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "labpractice"

// ErrInvalidCookie は署名や形式が不正なCookie値に対して返す。
var ErrInvalidCookie = errors.New("invalid session cookie")

// Codec はセッションIDをHS256署名付きトークンとしてCookie値に変換する。
// トークンにはセッションIDのみを含め、セッションの中身は含めない。
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec はCodecを生成する。secretが空の場合はエラーを返す。
func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Encode はセッションIDを署名済みトークンに変換する。
func (c *Codec) Encode(id string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    cookieIssuer,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(c.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return token, nil
}

// Decode は署名を検証し、トークンからセッションIDを取り出す。
// 改ざん・期限切れ・別の鍵で署名されたトークンはErrInvalidCookieを返す。
func (c *Codec) Decode(value string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing jti", ErrInvalidCookie)
	}
	return claims.ID, nil
}
