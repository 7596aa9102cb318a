package database

import (
	stderrors "errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/phrame/errors"
)

// IsBusyError reports whether err is a transient sqlite locking error
// that might be resolved by retrying.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, p := range []string{"database is locked", "database table is locked", "sqlite_busy", "driver: bad connection"} {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks for a unique constraint violation.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// FromDatabase converts a database error to an AppError.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsDuplicateError(err):
		return apperrors.Conflict("A "+resource+" with these details already exists.").WithCause(err)
	case IsBusyError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError, "Database is busy. Please try again.", http.StatusServiceUnavailable).WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
