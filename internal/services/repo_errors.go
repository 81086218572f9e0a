package services

import (
	"errors"
	"fmt"

	"github.com/eatsalad239/gato-blanco-ops/internal/repositories"
)

// mapRepoError translates repository error categories into service sentinels
// so callers never depend on the persistence layer directly.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr *repositories.Error
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrNotFound, repoErr.Message)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrStorageUnavailable, repoErr.Message)
		}
	}
	return err
}
