package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultScopes はログイン時に要求するスコープ。
var DefaultScopes = []string{oidc.ScopeOpenID, "profile", "email"}

// ClaimSet はIDトークンから取り出したユーザー情報。
type ClaimSet struct {
	Subject string
	Email   string
	Name    string
}

// IdentityProvider は認可コードフローでIdPとやり取りするインターフェース。
type IdentityProvider interface {
	// AuthCodeURL はstateとS256 challengeを付けた認可エンドポイントのURLを返す。
	AuthCodeURL(state, challenge string) string
	// Exchange は認可コードとverifierをトークンに交換し、検証済みIDトークンのクレームを返す。
	Exchange(ctx context.Context, code, verifier string) (*ClaimSet, error)
}

// OIDCConfig はOIDCプロバイダーの設定。
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// テスト用に差し替え可能なHTTPクライアント
	HTTPClient *http.Client
}

// OIDCProvider はディスカバリ済みのOIDCプロバイダー。
type OIDCProvider struct {
	oauth2     *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
}

// DiscoverOIDCProvider はissuerの /.well-known/openid-configuration を取得してOIDCProviderを生成する。
// 失敗した場合は*DiscoveryErrorを返す。
func DiscoverOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, &DiscoveryError{Issuer: cfg.IssuerURL, Err: err}
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	endpoint := provider.Endpoint()
	return &OIDCProvider{
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  endpoint.AuthURL,
				TokenURL: endpoint.TokenURL,
				// クライアント認証情報はリクエストボディで送る
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		verifier:   provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		httpClient: cfg.HTTPClient,
	}, nil
}

// AuthCodeURL はstateとS256 challengeを付けた認可エンドポイントのURLを返す。
func (p *OIDCProvider) AuthCodeURL(state, challenge string) string {
	return p.oauth2.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", ChallengeMethodS256),
	)
}

// idTokenClaims はIDトークンのうち利用するクレーム。
type idTokenClaims struct {
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
}

// Exchange は認可コードとverifierをトークンに交換し、IDトークンを検証してクレームを返す。
// 失敗した場合は*TokenExchangeErrorを返す。
func (p *OIDCProvider) Exchange(ctx context.Context, code, verifier string) (*ClaimSet, error) {
	if p.httpClient != nil {
		ctx = oidc.ClientContext(ctx, p.httpClient)
	}

	// 1. 認可コードをトークンに交換
	token, err := p.oauth2.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &TokenExchangeError{Err: err}
	}

	// 2. IDトークンを検証
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, &TokenExchangeError{Err: errors.New("id_token missing from token response")}
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, &TokenExchangeError{Err: fmt.Errorf("failed to verify id_token: %w", err)}
	}

	// 3. クレームを取り出す
	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, &TokenExchangeError{Err: fmt.Errorf("failed to decode id_token claims: %w", err)}
	}
	if idToken.Subject == "" {
		return nil, &TokenExchangeError{Err: errors.New("id_token has no subject")}
	}

	return &ClaimSet{
		Subject: idToken.Subject,
		Email:   firstNonEmpty(claims.Email, claims.PreferredUsername),
		Name:    firstNonEmpty(claims.Name, claims.GivenName),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// compile-time interface check
var _ IdentityProvider = (*OIDCProvider)(nil)
