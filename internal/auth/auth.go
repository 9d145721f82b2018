// Package auth resolves a caller's request (bearer JWT or API key) into
// the set of limited-access resource ids they're allowed to query.
// Neither credential is required: an anonymous caller simply resolves
// to an empty allowed set, restricting them to public resources.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sprakbanken/karp-s/internal/apperr"
)

// Claims is the JWT payload this service cares about: a "scope" object
// whose "lexica" map's keys name the allowed resources.
type Claims struct {
	jwt.RegisteredClaims
	Scope Scope `json:"scope"`
}

// Scope mirrors the upstream identity provider's authorization payload.
type Scope struct {
	Lexica map[string]json.RawMessage `json:"lexica"`
}

// Resolver resolves credentials into an allowed-resources set.
type Resolver struct {
	publicKey  any
	apiKeyURL  string
	apiKeyAuth string
	httpClient *http.Client
}

// NewResolver builds a Resolver. publicKey is the RS256 verification
// key for bearer JWTs (nil disables JWT auth); apiKeyURL/apiKeyAuth
// configure the upstream API-key verification service (an empty
// apiKeyURL disables API-key auth).
func NewResolver(publicKey any, apiKeyURL, apiKeyAuth string) *Resolver {
	return &Resolver{
		publicKey:  publicKey,
		apiKeyURL:  apiKeyURL,
		apiKeyAuth: apiKeyAuth,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// AllowedResources resolves a bearer token or API key (whichever is
// non-empty; bearerToken takes precedence) into the caller's allowed
// resource-id set. Both empty yields an empty set, not an error.
func (r *Resolver) AllowedResources(ctx context.Context, bearerToken, apiKey string) (map[string]bool, error) {
	switch {
	case bearerToken != "":
		if r.publicKey == nil {
			return nil, apperr.NewUser("JWT auth is not configured on this instance")
		}
		return r.resolveJWT(bearerToken)
	case apiKey != "":
		if r.apiKeyURL == "" {
			return nil, apperr.NewUser("API key auth is not configured on this instance")
		}
		return r.resolveAPIKey(ctx, apiKey)
	default:
		return map[string]bool{}, nil
	}
}

func (r *Resolver) resolveJWT(token string) (map[string]bool, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return r.publicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, apperr.NewJWTInvalid()
	}
	return lexicaToSet(claims.Scope.Lexica), nil
}

type apiKeyResponse struct {
	Scope Scope `json:"scope"`
}

func (r *Resolver) resolveAPIKey(ctx context.Context, apiKey string) (map[string]bool, error) {
	body, err := json.Marshal(map[string]string{"apikey": apiKey})
	if err != nil {
		return nil, apperr.NewInternal("marshal api key request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiKeyURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.NewInternal("build api key request: %v", err)
	}
	req.Header.Set("Authorization", "apikey "+r.apiKeyAuth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, apperr.NewAPIKeyInvalid()
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewAPIKeyInvalid()
	}

	var parsed apiKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.NewAPIKeyInvalid()
	}
	return lexicaToSet(parsed.Scope.Lexica), nil
}

func lexicaToSet(lexica map[string]json.RawMessage) map[string]bool {
	out := make(map[string]bool, len(lexica))
	for id := range lexica {
		out[id] = true
	}
	return out
}
