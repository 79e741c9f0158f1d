package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/hitster/internal/store"
	sqlitedriver "modernc.org/sqlite"
)

// Extended SQLite result codes for constraint failures.
const (
	constraintCheck      = 275
	constraintForeignKey = 787
	constraintNotNull    = 1299
	constraintPrimaryKey = 1555
	constraintUnique     = 2067
)

// MapError maps a database error to a store error. Constraint violations and
// missing rows become the matching sentinel; everything else is an I/O failure
// reported as a *store.StoreError for entity and operation.
func MapError(err error, entity, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, entity)
	}

	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case constraintUnique, constraintPrimaryKey:
			return fmt.Errorf("%w: %s: %v", store.ErrDuplicate, entity, err)
		case constraintForeignKey, constraintCheck, constraintNotNull:
			return fmt.Errorf("%w: %s: %v", store.ErrInvalidEntity, entity, err)
		}
	}

	return store.NewStoreError(entity, operation, "database error", err)
}
