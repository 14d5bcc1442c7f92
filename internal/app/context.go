package app

import (
	"context"
	"errors"
	"fmt"

	"careerdesk/internal/config"
	"careerdesk/internal/repo"
)

// ResolveSiteConfig picks the effective site config: an on-disk careerdesk.yml
// overrides and refreshes the DB copy, otherwise the stored copy is used, and
// a default is seeded when neither exists.
func ResolveSiteConfig(ctx context.Context, workspace, siteName string, r repo.Repo) (*config.Config, error) {
	fileCfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		if err := r.UpsertSiteConfig(ctx, fileCfg); err != nil {
			return nil, fmt.Errorf("store site config: %w", err)
		}
		return fileCfg, nil
	}
	cfg, err := r.GetSiteConfig(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if siteName == "" {
		siteName = "CareerDesk"
	}
	seed := config.Default(siteName)
	if err := r.UpsertSiteConfig(ctx, seed); err != nil {
		return nil, fmt.Errorf("seed site config: %w", err)
	}
	return seed, nil
}
