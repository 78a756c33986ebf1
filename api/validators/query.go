package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
)

// queryParam returns the trimmed value of key and whether it was given at all.
// Repeating a parameter is rejected rather than silently taking the first.
func queryParam(r *http.Request, key string) (string, bool, error) {
	values := r.URL.Query()[key]
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		raw := strings.TrimSpace(values[0])
		return raw, raw != "", nil
	default:
		return "", false, queryError(key, nil, "query parameter given more than once")
	}
}

func queryError(key string, cause error, msg string) error {
	details := map[string]any{"field": key}
	if cause == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, msg).WithDetails(details)
}

// ParseQueryInt reads an optional integer within [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw, ok, err := queryParam(r, key)
	if err != nil || !ok {
		return defaultVal, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, err, "query parameter must be numeric")
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryBool reads an optional flag such as ?unreadOnly=true.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw, ok, err := queryParam(r, key)
	if err != nil || !ok {
		return false, err
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, queryError(key, err, "query parameter must be true or false")
	}
	return value, nil
}

// ParseQueryEnum reads an optional enum filter (?state=open, ?status=shipped).
// A missing parameter yields nil.
func ParseQueryEnum[T any](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw, ok, err := queryParam(r, key)
	if err != nil || !ok {
		return nil, err
	}
	value, err := parse(raw)
	if err != nil {
		return nil, queryError(key, err, "invalid "+key)
	}
	return &value, nil
}
