// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/event-hosting/internal/apperr"
	"github.com/Shivanand-hulikatti/event-hosting/internal/repository"
)

// ViewCounter records hits and supplies view counts. Implementations are
// best-effort: they never fail and never block past their own timeout.
type ViewCounter interface {
	RecordHit(ctx context.Context, uri, ip string)
	ViewCounts(ctx context.Context, uris []string) map[string]int64
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct's validate tags and reports failures as
// validation errors.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("field %s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("field %s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

func eventLookupError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("event with id=%d was not found", id)
	}
	return fmt.Errorf("load event %d: %w", id, err)
}

func requestLookupError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("request with id=%d was not found", id)
	}
	return fmt.Errorf("load request %d: %w", id, err)
}

func requireUser(ctx context.Context, store repository.Store, id int64) error {
	ok, err := store.UserExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check user %d: %w", id, err)
	}
	if !ok {
		return apperr.NotFound("user with id=%d was not found", id)
	}
	return nil
}

// categoryChecker is satisfied by both repository.Store and repository.Tx.
type categoryChecker interface {
	CategoryExists(ctx context.Context, id int64) (bool, error)
}

func requireCategory(ctx context.Context, c categoryChecker, id int64) error {
	ok, err := c.CategoryExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check category %d: %w", id, err)
	}
	if !ok {
		return apperr.NotFound("category with id=%d was not found", id)
	}
	return nil
}
