package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

type migrationFile struct {
	version int64
	name    string
	path    string
}

// listMigrations returns the well-formed .sql files in dir sorted by version,
// plus the names of .sql files that do not follow the naming scheme.
func listMigrations(dir string) ([]migrationFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var (
		files    []migrationFile
		badNames []string
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			badNames = append(badNames, e.Name())
			continue
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		files = append(files, migrationFile{version: version, name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, badNames, nil
}

// ValidateDir checks every migration in dir and reports all problems at once.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	files, badNames, err := listMigrations(dir)
	if err != nil {
		return err
	}

	var errs error
	for _, name := range badNames {
		errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
	}
	for i, f := range files {
		if i > 0 && files[i-1].version == f.version {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %d in %q and %q", f.version, files[i-1].name, f.name))
		}
		body, err := os.ReadFile(f.path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", f.path, err))
			continue
		}
		errs = multierr.Append(errs, checkAnnotations(f.name, body))
	}
	return errs
}

// checkAnnotations requires Up before Down and balanced statement blocks in each section.
func checkAnnotations(name string, body []byte) error {
	var (
		section   string
		sawUp     bool
		sawDown   bool
		openBlock bool
		errs      error
	)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			if sawUp || sawDown {
				errs = multierr.Append(errs, fmt.Errorf("migration %q: unexpected \"-- +goose Up\"", name))
			}
			sawUp, section = true, "up"
		case "-- +goose Down":
			if !sawUp {
				errs = multierr.Append(errs, fmt.Errorf("migration %q: Down section before Up", name))
			}
			if openBlock {
				errs = multierr.Append(errs, fmt.Errorf("migration %q: unterminated statement block in %s section", name, section))
				openBlock = false
			}
			sawDown, section = true, "down"
		case "-- +goose StatementBegin":
			if openBlock {
				errs = multierr.Append(errs, fmt.Errorf("migration %q: nested StatementBegin in %s section", name, section))
			}
			openBlock = true
		case "-- +goose StatementEnd":
			if !openBlock {
				errs = multierr.Append(errs, fmt.Errorf("migration %q: StatementEnd without StatementBegin in %s section", name, section))
			}
			openBlock = false
		}
	}
	if err := scanner.Err(); err != nil {
		return multierr.Append(errs, fmt.Errorf("scan %q: %w", name, err))
	}
	if !sawUp {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Up\"", name))
	}
	if !sawDown {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Down\"", name))
	}
	if openBlock {
		errs = multierr.Append(errs, fmt.Errorf("migration %q: unterminated statement block in %s section", name, section))
	}
	return errs
}
