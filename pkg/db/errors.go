package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ViolationKind names the integrity constraint a write tripped over.
type ViolationKind string

const (
	UniqueViolation     ViolationKind = "unique"
	ForeignKeyViolation ViolationKind = "foreign_key"
	CheckViolation      ViolationKind = "check"
	NotNullViolation    ViolationKind = "not_null"
)

var sqlStateKinds = map[string]ViolationKind{
	"23505": UniqueViolation,
	"23503": ForeignKeyViolation,
	"23514": CheckViolation,
	"23502": NotNullViolation,
}

var sqliteKinds = []struct {
	prefix string
	kind   ViolationKind
}{
	{"UNIQUE constraint failed", UniqueViolation},
	{"FOREIGN KEY constraint failed", ForeignKeyViolation},
	{"CHECK constraint failed", CheckViolation},
	{"NOT NULL constraint failed", NotNullViolation},
}

// Violation describes a constraint error from postgres (pgx or lib/pq) or sqlite.
// Constraint is empty when the driver does not report it.
type Violation struct {
	Kind       ViolationKind
	Constraint string
	Table      string
}

// AsViolation extracts the constraint violation wrapped in err, if any.
func AsViolation(err error) (Violation, bool) {
	if err == nil {
		return Violation{}, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind, ok := sqlStateKinds[pgErr.Code]
		return Violation{Kind: kind, Constraint: pgErr.ConstraintName, Table: pgErr.TableName}, ok
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		kind, ok := sqlStateKinds[string(pqErr.Code)]
		return Violation{Kind: kind, Constraint: pqErr.Constraint, Table: pqErr.Table}, ok
	}

	msg := err.Error()
	for _, s := range sqliteKinds {
		idx := strings.Index(msg, s.prefix)
		if idx < 0 {
			continue
		}
		v := Violation{Kind: s.kind}
		// sqlite names the constraint only for CHECK; otherwise it lists table.column.
		detail := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(s.prefix):], ":"))
		if s.kind == CheckViolation {
			v.Constraint = detail
		} else if table, _, ok := strings.Cut(detail, "."); ok {
			v.Table = table
		}
		return v, true
	}
	if strings.Contains(msg, "duplicate key value") {
		return Violation{Kind: UniqueViolation}, true
	}
	return Violation{}, false
}

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is set and the driver reports constraint names, they must match.
func IsUniqueViolation(err error, constraintName string) bool {
	v, ok := AsViolation(err)
	if !ok || v.Kind != UniqueViolation {
		return false
	}
	return constraintName == "" || v.Constraint == "" || v.Constraint == constraintName
}

// IsCheckViolation reports whether err broke a CHECK constraint.
func IsCheckViolation(err error) bool {
	v, ok := AsViolation(err)
	return ok && v.Kind == CheckViolation
}
