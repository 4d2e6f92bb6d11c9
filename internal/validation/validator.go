// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package validation provides struct validation using go-playground/validator
// v10. A thread-safe singleton validator carries custom rules for entity
// names, policy language identifiers, and pagination cursors.
//
// Example:
//
//	type CreateRoleRequest struct {
//	    RoleName    string `json:"role_name" validate:"required,entityname,max=128"`
//	    Description string `json:"description" validate:"max=2048"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    ...
//	}
package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// entityNameRe matches the natural keys accepted for roles, permissions,
// groups, and policies. Permission names may embed a resource:action form.
var entityNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

// knownLanguages are the policy languages the engine recognizes by name.
// Unknown languages are still accepted downstream; this rule only rejects
// identifiers that could not be a language token at all.
var languageRe = regexp.MustCompile(`^[a-z][a-z0-9\-]{0,31}$`)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Registration errors are programming errors; panic at init time.
		mustRegister("entityname", func(fl validator.FieldLevel) bool {
			return entityNameRe.MatchString(fl.Field().String())
		})
		mustRegister("policylang", func(fl validator.FieldLevel) bool {
			return languageRe.MatchString(fl.Field().String())
		})
		mustRegister("b64cursor", func(fl validator.FieldLevel) bool {
			_, err := base64.URLEncoding.DecodeString(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// EntityName reports whether s is an acceptable natural key, per the same
// rule the `entityname` struct tag enforces. Used for URL path parameters,
// which bypass struct validation.
func EntityName(s string) bool {
	return entityNameRe.MatchString(s)
}

// FieldError is one field validation failure.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// Error returns the human-readable message.
func (e *FieldError) Error() string {
	return e.Message
}

// RequestValidationError aggregates the field failures of one request.
type RequestValidationError struct {
	fields []FieldError
}

// Errors returns the individual field failures.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.fields
}

// Error implements the error interface.
func (ve *RequestValidationError) Error() string {
	if len(ve.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.fields))
	for i, f := range ve.fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// APIError mirrors the HTTP layer's error body shape, avoiding an import
// cycle with the models package.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts the aggregate failure to the client-facing format.
func (ve *RequestValidationError) ToAPIError() *APIError {
	details := make(map[string]interface{}, len(ve.fields))
	for _, f := range ve.fields {
		details[f.Field] = f.Message
	}
	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: ve.Error(),
		Details: details,
	}
}

// ValidateStruct validates s against its `validate` tags. Returns nil when
// valid, or a *RequestValidationError describing every failing field.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{fields: []FieldError{{
			Field:   "",
			Message: err.Error(),
		}}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: messageFor(fe),
		})
	}
	return &RequestValidationError{fields: fields}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "entityname":
		return fmt.Sprintf("%s must be 1-128 characters of letters, digits, '.', '_', ':', or '-'", fe.Field())
	case "policylang":
		return fmt.Sprintf("%s must be a lowercase language identifier", fe.Field())
	case "b64cursor":
		return fmt.Sprintf("%s must be a base64url cursor", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
