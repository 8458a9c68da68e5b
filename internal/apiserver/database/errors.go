package database

import (
	"errors"
	"strings"

	"github.com/amoylab/cleanbill/internal/common/errorx"

	"gorm.io/gorm"
)

// IsDuplicateKey reports whether err is a unique constraint violation on any supported engine
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Duplicate entry")
}

// notFound maps gorm.ErrRecordNotFound onto a typed not-found error
func notFound(err error, typed *errorx.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return typed
	}
	return err
}
