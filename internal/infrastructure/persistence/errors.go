package persistence

import (
	"errors"

	"github.com/shopcore/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// notFound maps gorm's missing-row error to the domain one
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// duplicate maps a unique violation to a conflict carrying message. Needs
// TranslateError on the gorm config.
func duplicate(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.KindConflict, shared.ErrAlreadyExists.Code, message)
	}
	return err
}
