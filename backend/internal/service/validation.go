package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("bytesmax", bytesMax)
	return v
}

// bytesMax bounds the encoded length of a string.
func bytesMax(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// check runs struct validation and turns the first failure into a
// ValidationError clients can read.
func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return internal_errors.Validation("%s is required", field)
	case "max":
		return internal_errors.Validation("%s must be at most %s characters", field, fe.Param())
	case "bytesmax":
		return internal_errors.Validation("%s must be at most %s bytes", field, fe.Param())
	default:
		return internal_errors.Validation("%s is invalid", field)
	}
}

// page resolves optional skip/limit arguments.
func (s *Service) page(skip, limit *int) (domain.Page, error) {
	page := domain.Page{Offset: 0, Limit: s.pagination.DefaultLimit}
	if skip != nil {
		if *skip < 0 {
			return domain.Page{}, internal_errors.Validation("skip must not be negative")
		}
		page.Offset = *skip
	}
	if limit != nil {
		if *limit < 0 {
			return domain.Page{}, internal_errors.Validation("limit must not be negative")
		}
		page.Limit = *limit
	}
	if s.pagination.MaxLimit > 0 && page.Limit > s.pagination.MaxLimit {
		page.Limit = s.pagination.MaxLimit
	}
	return page, nil
}
