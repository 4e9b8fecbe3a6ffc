package service

import (
	"errors"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// storeErr maps a repository failure onto the domain taxonomy: a missing
// row is NOT_FOUND, anything else is a transient store failure the caller
// may retry.
func storeErr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.NewStoreUnavailable(err)
}
