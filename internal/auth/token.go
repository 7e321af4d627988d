// Package auth mints short-lived Google access tokens for the document
// store. It builds a self-signed RS256 JWT by hand and exchanges it at the
// OAuth2 token endpoint with the jwt-bearer grant. Tokens are never cached:
// every caller re-mints, so a mint failure is always attributable to the
// operation that triggered it.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/itinera-app/backend/internal/domain"
)

const (
	// defaultTokenURL is Google's OAuth2 token endpoint. It doubles as the
	// audience claim of the self-signed assertion.
	defaultTokenURL = "https://oauth2.googleapis.com/token"

	// datastoreScope grants read/write access to Firestore documents.
	datastoreScope = "https://www.googleapis.com/auth/datastore"

	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// tokenLifetime is the requested validity of the minted token.
	tokenLifetime = time.Hour
)

// TokenProvider mints bearer tokens for a single service account.
type TokenProvider struct {
	issuerEmail string
	signer      Signer
	tokenURL    string
	scope       string
	httpClient  *http.Client
	now         func() time.Time
}

// NewTokenProvider constructs a TokenProvider for the given service account
// issuer, signing assertions with signer.
func NewTokenProvider(issuerEmail string, signer Signer) *TokenProvider {
	return &TokenProvider{
		issuerEmail: issuerEmail,
		signer:      signer,
		tokenURL:    defaultTokenURL,
		scope:       datastoreScope,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		now:         time.Now,
	}
}

// Mint builds a self-signed assertion, exchanges it at the token endpoint,
// and returns the resulting access token. Failures of either step wrap
// domain.ErrAuth. There is no retry at this layer.
func (p *TokenProvider) Mint(ctx context.Context) (string, error) {
	assertion, err := p.assertion()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build exchange request: %v", domain.ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", domain.ErrAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read exchange response: %v", domain.ErrAuth, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: token exchange returned %d", domain.ErrAuth, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: decode exchange response: %v", domain.ErrAuth, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: exchange response has no access_token", domain.ErrAuth)
	}
	return payload.AccessToken, nil
}

// assertion builds the compact RS256 JWS the token endpoint accepts as a
// jwt-bearer assertion.
func (p *TokenProvider) assertion() (string, error) {
	header := map[string]string{"alg": "RS256", "typ": "JWT"}

	iat := p.now().Unix()
	claims := map[string]any{
		"iss":   p.issuerEmail,
		"scope": p.scope,
		"aud":   p.tokenURL,
		"iat":   iat,
		"exp":   iat + int64(tokenLifetime.Seconds()),
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := b64url(headerJSON) + "." + b64url(claimsJSON)
	sig, err := p.signer.Sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return signingInput + "." + b64url(sig), nil
}

// b64url is base64url without padding, as required for JWS segments.
func b64url(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
