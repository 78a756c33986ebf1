package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Commands lists what Run accepts.
var Commands = []string{"up", "up-by-one", "down", "redo"}

// Migrations returns the migration set compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migrations fs is required")
	}
	// migrations target postgres only
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Run applies a goose command and returns every migration it touched.
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, command string) ([]*goose.MigrationResult, error) {
	if !slices.Contains(Commands, command) {
		return nil, fmt.Errorf("unknown migration command %q", command)
	}
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return results, fmt.Errorf("goose up: %w", err)
		}
		return results, nil
	case "up-by-one":
		return single(provider.UpByOne(ctx))
	case "down":
		return single(provider.Down(ctx))
	default:
		down, err := provider.Down(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose redo: %w", err)
		}
		up, err := provider.UpByOne(ctx)
		if err != nil {
			return []*goose.MigrationResult{down}, fmt.Errorf("goose redo: %w", err)
		}
		return []*goose.MigrationResult{down, up}, nil
	}
}

func single(result *goose.MigrationResult, err error) ([]*goose.MigrationResult, error) {
	if err != nil {
		return nil, err
	}
	return []*goose.MigrationResult{result}, nil
}

// Status reports applied and pending migrations in version order.
func Status(ctx context.Context, db *sql.DB, fsys fs.FS) ([]*goose.MigrationStatus, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}
	return provider.Status(ctx)
}

// ToVersion migrates up or down until the database sits at targetVersion.
func ToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, targetVersion string) ([]*goose.MigrationResult, error) {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		return provider.UpTo(ctx, target)
	default:
		return provider.DownTo(ctx, target)
	}
}
