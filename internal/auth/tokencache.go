/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package auth holds the client-side bearer token cache. It implements the
// header provider contract of the transport package; obtaining tokens is up
// to the caller (static configuration or a refresh function).
package auth

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"gopkg.in/go-jose/go-jose.v2/jwt"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
)

// RefreshFunc obtains a new token for a base address.
type RefreshFunc func(baseAddress string) (string, error)

type cachedToken struct {
	raw    string
	expiry time.Time // zero for opaque tokens
}

// TokenCache stores bearer tokens per base address. JWTs are inspected
// (without signature verification) for their exp claim; expired tokens are
// refreshed through the RefreshFunc or dropped.
type TokenCache struct {
	mu      sync.RWMutex
	tokens  map[string]cachedToken
	refresh RefreshFunc
	leeway  time.Duration
	now     func() time.Time
	log     *logger.Logger
}

// NewTokenCache creates an empty cache. refresh may be nil.
func NewTokenCache(refresh RefreshFunc, log *logger.Logger) *TokenCache {
	if log == nil {
		log = logger.New("AUTH")
	}
	return &TokenCache{
		tokens:  make(map[string]cachedToken),
		refresh: refresh,
		leeway:  30 * time.Second,
		now:     time.Now,
		log:     log,
	}
}

// NewTokenCacheFromConfig seeds a cache with the static tokens of the
// configuration.
func NewTokenCacheFromConfig(cfg common.AuthConfig, log *logger.Logger) *TokenCache {
	c := NewTokenCache(nil, log)
	for base, token := range cfg.Tokens {
		if err := c.Set(base, token); err != nil {
			c.log.LogWarning("AUTH-CONFIG-TOKEN: ignoring token for " + base + ": " + err.Error())
		}
	}
	return c
}

// NormalizeBaseAddress reduces a URI to lower-case scheme://host[:port].
func NormalizeBaseAddress(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// Set stores token for baseAddress. A "Bearer " prefix is stripped.
func (c *TokenCache) Set(baseAddress string, token string) error {
	token = strings.TrimSpace(token)
	if strings.EqualFold(token, "bearer") || strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[len("bearer"):])
	}
	if token == "" {
		return common.NewErrBadRequest("AUTH-SET-EMPTYTOKEN")
	}
	entry := cachedToken{raw: token}
	if exp, ok := expiryOf(token); ok {
		entry.expiry = exp
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[NormalizeBaseAddress(baseAddress)] = entry
	return nil
}

// Invalidate drops the token of baseAddress.
func (c *TokenCache) Invalidate(baseAddress string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, NormalizeBaseAddress(baseAddress))
}

// HeaderFor returns the Authorization header for baseAddress.
func (c *TokenCache) HeaderFor(baseAddress string) (string, string, bool) {
	base := NormalizeBaseAddress(baseAddress)

	c.mu.RLock()
	entry, ok := c.tokens[base]
	c.mu.RUnlock()

	if ok && !c.expired(entry) {
		return "Authorization", "Bearer " + entry.raw, true
	}
	if c.refresh == nil {
		if ok {
			c.log.LogWarning("AUTH-HEADER-EXPIRED: token for " + base + " expired")
			c.Invalidate(base)
		}
		return "", "", false
	}

	token, err := c.refresh(base)
	if err != nil {
		c.log.LogError("AUTH-HEADER-REFRESH "+base, err)
		c.Invalidate(base)
		return "", "", false
	}
	if err := c.Set(base, token); err != nil {
		c.log.LogError("AUTH-HEADER-REFRESH "+base, err)
		return "", "", false
	}
	c.mu.RLock()
	entry = c.tokens[base]
	c.mu.RUnlock()
	return "Authorization", "Bearer " + entry.raw, true
}

func (c *TokenCache) expired(entry cachedToken) bool {
	if entry.expiry.IsZero() {
		return false
	}
	return !c.now().Add(c.leeway).Before(entry.expiry)
}

// expiryOf reads the exp claim of a compact JWS. Opaque tokens report false.
func expiryOf(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return time.Time{}, false
	}
	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, false
	}
	if claims.Expiry == nil {
		return time.Time{}, false
	}
	return claims.Expiry.Time(), true
}
