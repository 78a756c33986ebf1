package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/quotemarket-backend/pkg/config"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when running in dev
// with QUOTEMARKET_AUTO_MIGRATE set. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if strings.EqualFold(cfg.DB.Driver, db.DriverSQLite) {
		logg.Warn(ctx, "sqlite schema comes from gorm models; skipping goose")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	results, err := Run(ctx, sqlDB, Migrations(), "up")
	for _, result := range results {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     result.Source.Version,
			"path":        result.Source.Path,
			"duration_ms": result.Duration.Milliseconds(),
		}), "migration applied")
	}
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "dev migrations up to date")
	return nil
}
