package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// ChallengeMethodS256 はPKCEのcode_challenge_method。plainは使用しない。
const ChallengeMethodS256 = "S256"

// PKCE はRFC 7636のverifierとchallengeの組。
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE は新しいverifierを生成し、対応するS256 challengeとともに返す。
// verifierは32バイトの乱数をbase64url（パディングなし）でエンコードした43文字の文字列。
func NewPKCE() PKCE {
	verifier := oauth2.GenerateVerifier()
	return PKCE{
		Verifier:  verifier,
		Challenge: ChallengeFor(verifier),
	}
}

// ChallengeFor はverifierからS256 challenge（base64url(SHA-256(verifier))）を計算する。
func ChallengeFor(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// NewState はOAuthのstateパラメータ用の推測困難な値を生成する。
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
