package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-push-notify/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// GrantTypeJWTBearer is the RFC 7523 grant used for the exchange.
	GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	assertionLifetime = time.Hour
	maxErrorBody      = 4 << 10
)

// Token is a bearer access token and the instant it stops being valid.
type Token struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

// Valid reports whether the token is usable for at least skew longer.
func (t *Token) Valid(now time.Time, skew time.Duration) bool {
	return t != nil && t.AccessToken != "" && now.Add(skew).Before(t.Expiry)
}

// TokenSource mints access tokens for a signing identity.
type TokenSource interface {
	AccessToken(ctx context.Context, id SigningIdentity) (*Token, error)
}

// Provider exchanges RS256-signed JWT assertions for access tokens.
// It does not cache; wrap it in a CachingProvider for that.
type Provider struct {
	httpClient *http.Client
	now        func() time.Time
}

func NewProvider(timeout time.Duration) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// AccessToken signs an assertion for id and posts it to the token endpoint.
// A bad key fails with *domain.ConfigurationError before any request is made;
// a non-2xx answer fails with *domain.AuthError.
func (p *Provider) AccessToken(ctx context.Context, id SigningIdentity) (*Token, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	now := p.now()
	assertion, err := signAssertion(id, now)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", GrantTypeJWTBearer)
	form.Set("assertion", assertion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, id.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "token_uri", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return nil, &domain.AuthError{StatusCode: resp.StatusCode, Body: "response carried no access_token"}
	}
	expiry := now.Add(assertionLifetime)
	if out.ExpiresIn > 0 {
		expiry = now.Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return &Token{AccessToken: out.AccessToken, TokenType: out.TokenType, Expiry: expiry}, nil
}

// signAssertion builds header {alg:RS256,typ:JWT} and the claim set
// {iss, scope, aud, iat, exp=iat+3600} and signs them with the identity key.
func signAssertion(id SigningIdentity, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(id.PrivateKeyPEM))
	if err != nil {
		// The parse error never echoes key material.
		return "", &domain.ConfigurationError{Field: "private_key", Err: err}
	}
	iat := now.Unix()
	claims := jwt.MapClaims{
		"iss":   id.ClientEmail,
		"scope": id.Scope,
		"aud":   id.TokenURI,
		"iat":   iat,
		"exp":   iat + int64(assertionLifetime/time.Second),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", &domain.ConfigurationError{Field: "private_key", Err: err}
	}
	return signed, nil
}
