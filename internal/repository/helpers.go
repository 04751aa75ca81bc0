package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert collides with a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const (
	uniqueViolation           = pq.ErrorCode("23505")
	invalidTextRepresentation = pq.ErrorCode("22P02")
)

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// IsInvalidText reports whether err is a PostgreSQL invalid_text_representation,
// raised for instance when a malformed id is compared against a uuid column.
func IsInvalidText(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == invalidTextRepresentation
	}
	return false
}

// isMissing reports whether a single-row lookup found nothing. A malformed id
// cannot match any row either.
func isMissing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || IsInvalidText(err)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func resolveSort(sortBy, fallback string, allowed map[string]bool) string {
	if !allowed[sortBy] {
		return fallback
	}
	return sortBy
}

func resolveOrder(order, fallback string) string {
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		return fallback
	}
	return order
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
