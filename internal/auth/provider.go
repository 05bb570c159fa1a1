// package auth obtains and caches bearer credentials for platform APIs
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/shared"
	"golang.org/x/sync/singleflight"
)

// Credential is a bearer token and the instant it stops being usable.
//
// A zero ExpiresAt means the token never expires.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can be used at now.
func (c Credential) Valid(now time.Time) bool {
	if c.Token == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

// Source fetches a fresh credential, usually with a network call.
type Source interface {
	Fetch(ctx context.Context) (Credential, error)
}

// SourceFunc adapts a function to [Source].
type SourceFunc func(ctx context.Context) (Credential, error)

func (f SourceFunc) Fetch(ctx context.Context) (Credential, error) { return f(ctx) }

// Provider hands out bearer tokens.
type Provider interface {
	// Token returns a cached token while it is valid and refreshes otherwise.
	Token(ctx context.Context) (string, error)

	// Refresh discards the cached token and fetches a new one.
	Refresh(ctx context.Context) (string, error)
}

// CachingProvider implements [Provider] over a [Source].
//
// Concurrent refreshes are collapsed into one fetch.
type CachingProvider struct {
	name    string
	source  Source
	now     func() time.Time
	timeout time.Duration
	logger  *log.Logger

	mu    sync.Mutex
	cred  *Credential
	group singleflight.Group
}

// ProviderOpts configures a [CachingProvider].
type ProviderOpts struct {
	Logger *log.Logger
	Now    func() time.Time
	// FetchTimeout bounds a refresh shared by concurrent callers. Defaults to [DefaultFetchTimeout].
	FetchTimeout time.Duration
}

// DefaultFetchTimeout bounds a single credential fetch.
const DefaultFetchTimeout = 30 * time.Second

// NewCachingProvider creates a provider named after the platform/account it serves.
func NewCachingProvider(name string, source Source, opts ProviderOpts) *CachingProvider {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	return &CachingProvider{
		name:    name,
		source:  source,
		now:     opts.Now,
		timeout: opts.FetchTimeout,
		logger:  shared.WithLogger(opts.Logger, "provider", name),
	}
}

// Name returns the provider name.
func (p *CachingProvider) Name() string {
	return p.name
}

// Token returns the cached token if it is still valid, otherwise refreshes.
func (p *CachingProvider) Token(ctx context.Context) (string, error) {
	cred, err := p.Credential(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// Credential is [CachingProvider.Token] with the expiry attached.
func (p *CachingProvider) Credential(ctx context.Context) (Credential, error) {
	p.mu.Lock()
	cred := p.cred
	p.mu.Unlock()

	if cred != nil && cred.Valid(p.now()) {
		return *cred, nil
	}
	return p.fetch(ctx)
}

// Refresh invalidates the cached token and fetches a new one.
func (p *CachingProvider) Refresh(ctx context.Context) (string, error) {
	p.Invalidate()
	cred, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// Invalidate drops the cached credential.
func (p *CachingProvider) Invalidate() {
	p.mu.Lock()
	p.cred = nil
	p.mu.Unlock()
}

// fetch runs one refresh shared by every concurrent caller.
//
// The fetch is detached from the caller's cancellation and bounded by the fetch timeout instead. Each caller
// still returns once its own ctx is done.
func (p *CachingProvider) fetch(ctx context.Context) (Credential, error) {
	ch := p.group.DoChan(p.name, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		cred, err := p.source.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if cred.Token == "" {
			return nil, fmt.Errorf("empty token")
		}

		p.mu.Lock()
		p.cred = &cred
		p.mu.Unlock()

		p.logger.Debug("credential refreshed", "expires_at", cred.ExpiresAt)
		return cred, nil
	})

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			p.logger.Error("credential refresh failed", "err", res.Err)
			return Credential{}, fmt.Errorf("%w: %s: %v", shared.ErrAuthFailed, p.name, res.Err)
		}
		if res.Shared {
			p.logger.Debug("shared in-flight refresh")
		}
		return res.Val.(Credential), nil
	}
}
