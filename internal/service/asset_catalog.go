package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AssetCatalog resolves rentable assets, reading through Redis
type AssetCatalog struct {
	assets AssetRepository
	cache  AssetCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAssetCatalog creates a new asset catalog
func NewAssetCatalog(assets AssetRepository, cache AssetCache, ttl time.Duration) *AssetCatalog {
	return &AssetCatalog{
		assets: assets,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// GetAsset returns the asset with id, or a not-found error
func (ac *AssetCatalog) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	ctx, span := util.StartSpan(ctx, "AssetCatalog.GetAsset", attribute.String("asset_id", id))
	defer span.End()

	cached, err := ac.cache.GetCachedAsset(ctx, id)
	if err != nil {
		ac.logger.Warn("Asset cache read failed, falling back to DB",
			zap.String("asset_id", id),
			zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	asset, err := ac.assets.GetAssetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Asset not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	if err := ac.cache.CacheAsset(ctx, asset, ac.ttl); err != nil {
		ac.logger.Warn("Failed to cache asset", zap.String("asset_id", id), zap.Error(err))
	}
	return asset, nil
}

// GetAssetsByIDs returns the assets that exist among ids, keyed by id
func (ac *AssetCatalog) GetAssetsByIDs(ctx context.Context, ids []string) (map[string]*models.Asset, error) {
	assets, err := ac.assets.GetAssetsByIDs(ctx, unique(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}

	byID := make(map[string]*models.Asset, len(assets))
	for i := range assets {
		byID[assets[i].ID] = &assets[i]
	}
	return byID, nil
}

// WarmCache loads every asset into Redis
func (ac *AssetCatalog) WarmCache(ctx context.Context) error {
	ac.logger.Info("Starting asset cache warm-up")

	assets, err := ac.assets.GetAssets(ctx)
	if err != nil {
		return fmt.Errorf("failed to get assets: %w", err)
	}

	for i := range assets {
		if err := ac.cache.CacheAsset(ctx, &assets[i], ac.ttl); err != nil {
			ac.logger.Error("Failed to cache asset",
				zap.String("asset_id", assets[i].ID),
				zap.Error(err))
		}
	}

	ac.logger.Info("Asset cache warm-up completed", zap.Int("count", len(assets)))
	return nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
