// Package repository provides the GORM/Postgres implementations of the
// engine's persistence interfaces.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/apperr"
)

// Postgres error codes the engine reacts to.
const (
	pgCodeUniqueViolation = "23505"
	pgCodeLockNotAvail    = "55P03"
	pgCodeDeadlock        = "40P01"
	pgCodeSerialization   = "40001"
)

// translate maps a storage error onto the engine's error taxonomy:
// record-not-found and lock/uniqueness conflicts keep their kind, everything
// else surfaces as a fatal storage error.
func translate(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s", notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeUniqueViolation:
			return apperr.Conflict("duplicate record: %s", pgErr.ConstraintName)
		case pgCodeLockNotAvail, pgCodeDeadlock, pgCodeSerialization:
			return apperr.Conflict("concurrent mutation detected: %s", pgErr.Code)
		}
	}
	return apperr.Storage(err)
}
