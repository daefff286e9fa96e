// Package service holds the business rules of snapgram. Services sit between
// the HTTP handlers and the storage layer:
//
//	Handler (HTTP) → Service (rules, logging) → repository.Store (SQL)
//
// Services never see HTTP types, and handlers never see SQL. Domain errors
// from the store (not found, conflicts) pass through untouched so the
// handler can map them to status codes; anything else is a storage failure,
// logged here with its detail and wrapped for the caller.
package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/snapgram/internal/apperror"
)

// storeFailure returns err unchanged when it is a domain error. Otherwise it
// logs the failure at Error with attrs and wraps it with op.
func storeFailure(logger *slog.Logger, op string, err error, attrs ...any) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	logger.Error("store failure: "+op, append(attrs, slog.String("error", err.Error()))...)
	return fmt.Errorf("%s: %w", op, err)
}
