// Package jwt provides a JWT authentication middleware for gale request
// chains, grounded on golang-jwt/jwt/v5.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/galehttp/gale/pkg/gale"
)

// Common JWT errors.
var (
	ErrMissingToken      = errors.New("missing authorization token")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
)

// Config configures JWT.
type Config struct {
	// Secret validates HMAC-signed tokens.
	Secret []byte
	// Algorithm is the required signing algorithm. Default HS256.
	Algorithm string
	// SkipPaths lists request paths exempt from authentication.
	SkipPaths []string
	// AttrKey is the Request.Attributes key claims are stored under.
	// Default "user".
	AttrKey string
	// ErrorHandler builds the response for an authentication failure
	// instead of the default 401.
	ErrorHandler func(req *gale.Request, resp *gale.Response, err error)
	// CacheTTL is how long a validated token's claims are cached.
	// Default 5 minutes.
	CacheTTL time.Duration
}

// DefaultConfig returns HS256 validation against secret with a 5-minute
// token cache.
func DefaultConfig(secret []byte) Config {
	return Config{
		Secret:    secret,
		Algorithm: "HS256",
		AttrKey:   "user",
		CacheTTL:  5 * time.Minute,
	}
}

// JWT returns a middleware validating config.Secret-signed bearer
// tokens and storing the parsed claims under config.AttrKey.
func JWT(config Config) gale.Middleware {
	if config.Algorithm == "" {
		config.Algorithm = "HS256"
	}
	if config.AttrKey == "" {
		config.AttrKey = "user"
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	cache := newTokenCache(config.CacheTTL)
	go cache.cleanup()
	var verifyGroup singleflight.Group

	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		if skip[req.Path()] {
			next(req, resp)
			return
		}

		authHeader := req.Headers.GetFirst("Authorization")
		if authHeader == "" {
			fail(req, resp, config.ErrorHandler, ErrMissingToken)
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" {
			fail(req, resp, config.ErrorHandler, ErrInvalidAuthHeader)
			return
		}

		if claims, ok := cache.get(tokenString); ok {
			req.SetAttr(config.AttrKey, claims)
			next(req, resp)
			return
		}

		// singleflight collapses concurrent requests bearing the same
		// not-yet-cached token into a single verification.
		result, err, _ := verifyGroup.Do(tokenString, func() (interface{}, error) {
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != config.Algorithm {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return config.Secret, nil
			})
			if err != nil {
				return nil, err
			}
			if !token.Valid {
				return nil, ErrInvalidToken
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return nil, ErrInvalidClaims
			}
			cache.set(tokenString, claims)
			return claims, nil
		})
		if err != nil {
			fail(req, resp, config.ErrorHandler, err)
			return
		}

		req.SetAttr(config.AttrKey, result.(jwt.MapClaims))
		next(req, resp)
	}
}

func fail(req *gale.Request, resp *gale.Response, handler func(*gale.Request, *gale.Response, error), err error) {
	if handler != nil {
		handler(req, resp, err)
		return
	}
	resp.Reset()
	resp.Status = 401
	resp.WriteString(err.Error())
}

// tokenCache avoids re-verifying the same token's signature on every
// request within its TTL.
type tokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*cacheEntry
	ttl    time.Duration
}

type cacheEntry struct {
	claims    jwt.MapClaims
	expiresAt time.Time
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{tokens: make(map[string]*cacheEntry), ttl: ttl}
}

func (tc *tokenCache) get(token string) (jwt.MapClaims, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	entry, ok := tc.tokens[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.claims, true
}

func (tc *tokenCache) set(token string, claims jwt.MapClaims) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.tokens[token] = &cacheEntry{claims: claims, expiresAt: time.Now().Add(tc.ttl)}
}

func (tc *tokenCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		tc.mu.Lock()
		now := time.Now()
		for token, entry := range tc.tokens {
			if now.After(entry.expiresAt) {
				delete(tc.tokens, token)
			}
		}
		tc.mu.Unlock()
	}
}
