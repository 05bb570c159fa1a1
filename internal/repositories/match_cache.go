package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
)

// MatchCacheAdapter implements tasks.MatchCacher using MatchRepository.
//
// Duplicate keys are silently ignored (UNIQUE constraint violations).
type MatchCacheAdapter struct {
	repo *MatchRepository
}

// NewMatchCacheAdapter creates a new MatchCacheAdapter with the given repository
func NewMatchCacheAdapter(repo *MatchRepository) *MatchCacheAdapter {
	return &MatchCacheAdapter{repo: repo}
}

// LookupMatch returns the cached destination id for key, if any.
func (a *MatchCacheAdapter) LookupMatch(ctx context.Context, platform models.Platform, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m, err := a.repo.GetByKey(platform, key)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.DestinationID(), true, nil
}

// StoreMatch caches a match. Returns nil if the key is already cached.
func (a *MatchCacheAdapter) StoreMatch(ctx context.Context, platform models.Platform, key, destinationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if existing, err := a.repo.GetByKey(platform, key); err == nil && existing != nil {
		return nil
	}

	if err := a.repo.Create(models.NewPersistedMatch(platform, key, destinationID)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache match: %w", err)
	}
	return nil
}
