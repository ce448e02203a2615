package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/petar554/fakturo/internal/domain/apperr"
)

// translateError maps store-level constraint violations into the error
// taxonomy. Constraints are the authoritative backstop for the service-level
// pre-checks, which can race.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return apperr.Wrap(apperr.KindConflict, "resource already exists", err)
	case pgerrcode.ForeignKeyViolation:
		return apperr.Wrap(apperr.KindValidation, "invalid reference to related resource", err)
	case pgerrcode.NotNullViolation:
		return apperr.Wrap(apperr.KindValidation, "required field missing", err)
	}
	return err
}
