// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package auth holds the authentication token cache consumed by the
// platform HTTP client (spec §6.3). The subsystem is external to the core
// reconciliation engine, but its concurrency contract — a single-permit
// gate around refresh, so that concurrent callers which observe an expired
// token do not all hit the token endpoint at once — is specified precisely
// enough in spec §5 to warrant a real implementation here.
package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Refresher exchanges (username, password) for a fresh token and its
// expiry. Long-lived static tokens bypass this entirely via NewStaticCache.
type Refresher func(ctx context.Context) (token string, expiresAt time.Time, err error)

// Cache is a refreshing token cache guarded by a single-permit semaphore:
// callers that find an expired token acquire the permit, re-check under the
// permit, refresh only on a genuine miss, and release.
type Cache struct {
	refresh Refresher
	permit  *semaphore.Weighted

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewCache constructs a refreshing cache around refresh.
func NewCache(refresh Refresher) *Cache {
	return &Cache{
		refresh: refresh,
		permit:  semaphore.NewWeighted(1),
	}
}

// NewStaticCache wraps a long-lived token that never expires.
func NewStaticCache(token string) *Cache {
	return &Cache{
		token:     token,
		expiresAt: time.Now().AddDate(100, 0, 0),
	}
}

// Token returns a valid token, refreshing it if the cached one has expired
// or is within 30 seconds of expiring.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.valid(); ok {
		return tok, nil
	}

	if c.refresh == nil {
		// Static cache with no refresher: return whatever is cached even if
		// past its nominal expiry, since there is nothing to refresh it with.
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.token, nil
	}

	if err := c.permit.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.permit.Release(1)

	// Re-check under the permit: another goroutine may have refreshed while
	// we were waiting to acquire it.
	if tok, ok := c.valid(); ok {
		return tok, nil
	}

	tok, expiresAt, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = tok
	c.expiresAt = expiresAt
	c.mu.Unlock()

	return tok, nil
}

func (c *Cache) valid() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", false
	}
	if time.Now().After(c.expiresAt.Add(-30 * time.Second)) {
		return "", false
	}
	return c.token, true
}
