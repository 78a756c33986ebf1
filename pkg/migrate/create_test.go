package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationSanitizesAndValidates(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "  Add Quote-Rating Column ", now)
	require.NoError(t, err)
	require.Equal(t, "20260304100000_add_quote_rating_column.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}

func TestCreateSQLMigrationStepsPastNewestVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	first, err := createSQLMigration(dir, "one", now)
	require.NoError(t, err)
	second, err := createSQLMigration(dir, "two", now)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(filepath.Base(first), "20260304100000_"))
	require.True(t, strings.HasPrefix(filepath.Base(second), "20260304100001_"))
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("bad-name.sql", "-- +goose Up\n-- +goose Down\n")
	write("20260101000000_no_down.sql", "-- +goose Up\nSELECT 1;\n")
	write("20260101000001_open_block.sql", "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 2;\n")
	write("20260101000002_down_first.sql", "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 2;\n")
	write("notes.txt", "ignored")

	err := ValidateDir(dir)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, `invalid migration filename "bad-name.sql"`)
	require.Contains(t, msg, `"20260101000000_no_down.sql" missing "-- +goose Down"`)
	require.Contains(t, msg, "unterminated statement block in up section")
	require.Contains(t, msg, "Down section before Up")
}
