package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be a positive integer"}
	}
	return value, nil
}

// PaginationFromQuery parses page and limit query parameters. Absent values
// default to page 1 and a page size of 10; present but malformed or
// non-positive values are rejected rather than silently defaulted.
func PaginationFromQuery(r *http.Request) (page, limit int64, err error) {
	page, limit = 1, defaultPageSize

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = ParsePositiveInt64Field(raw, "page")
		if err != nil {
			return 0, 0, err
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = ParsePositiveInt64Field(raw, "limit")
		if err != nil {
			return 0, 0, err
		}
		if limit > maxPageSize {
			return 0, 0, FieldError{Field: "limit", Reason: fmt.Sprintf("must be at most %d", maxPageSize)}
		}
	}
	return page, limit, nil
}
