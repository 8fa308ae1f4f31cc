package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// translateWriteErr maps a Postgres constraint violation to the taxonomy in
// pkg/apperrors, falling back to INFRA for anything else.
func translateWriteErr(err error, key, value string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return apperrors.Conflict(key, value)
		case "foreign_key_violation":
			return apperrors.Validation(key, "referenced row does not exist")
		}
	}
	return apperrors.Infra("postgres write failed", err)
}

func notFoundOrInfra(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(entity, id)
	}
	return apperrors.Infra("postgres read failed", err)
}
