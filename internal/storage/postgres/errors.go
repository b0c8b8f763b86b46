package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"maptimes/internal/domain"
)

const uniqueViolation pq.ErrorCode = "23505"

// mapError translates driver errors into domain sentinels so services never
// inspect pq errors themselves.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Constraint)
	}
	return err
}
