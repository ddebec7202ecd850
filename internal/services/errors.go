package services

import (
	"errors"
	"fmt"

	"github.com/sjperalta/insurance-api/internal/repository"
	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrDuplicate       = errors.New("duplicate record")
)

// ValidationError reports the first rule a request failed. MessageKey is the
// client's translation key.
type ValidationError struct {
	Field      string `json:"field"`
	MessageKey string `json:"messageKey"`
	Message    string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, key, message string) *ValidationError {
	return &ValidationError{Field: field, MessageKey: key, Message: message}
}

// NotFoundError is a not-found condition with an entity-specific message key
type NotFoundError struct {
	Entity     string
	MessageKey string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DuplicateError is a unique-constraint conflict on entity
type DuplicateError struct {
	Entity     string
	MessageKey string
}

func (e *DuplicateError) Error() string {
	return e.Entity + " already exists"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func duplicate(entity string) error {
	return &DuplicateError{Entity: entity, MessageKey: entity + ".duplicate"}
}

// translateErr maps repository errors onto service errors: a missing row becomes
// a NotFoundError for entity, a duplicate key a DuplicateError; the rest pass through.
func translateErr(entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &NotFoundError{Entity: entity, MessageKey: entity + ".not_found"}
	case errors.Is(err, repository.ErrDuplicateKey):
		return duplicate(entity)
	}
	return err
}
