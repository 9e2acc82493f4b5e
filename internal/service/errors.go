package service

import (
	"errors"
	"fmt"

	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
	"github.com/gettruefans/truefans-api/internal/repository"
)

var (
	ErrNotFound             = repository.ErrNotFound
	ErrDuplicate            = repository.ErrDuplicate
	ErrBrandNotFound        = repository.ErrBrandNotFound
	ErrLocationNotFound     = repository.ErrLocationNotFound
	ErrTemplateNotFound     = repository.ErrTemplateNotFound
	ErrDinerNotFound        = repository.ErrDinerNotFound
	ErrIssuedPassNotFound   = repository.ErrIssuedPassNotFound
	ErrSubscriptionNotFound = repository.ErrSubscriptionNotFound

	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrExternalService  = errors.New("external service failed")
	ErrBillingDisabled  = errors.New("billing is not configured")

	ErrMissingCredentials  = pkpass.ErrMissingCredentials
	ErrAssetNotFound       = pkpass.ErrAssetNotFound
	ErrBuild               = pkpass.ErrBuild
	ErrUnsupportedPlatform = pkpass.ErrUnsupportedPlatform
)

// IssuanceError is returned when a pass record exists but its wallet file
// could not be built, stored or committed. The record is left failed and
// downloading its wallet file retries the build.
type IssuanceError struct {
	Serial string
	Err    error
}

func (e *IssuanceError) Error() string {
	return fmt.Sprintf("issue pass %s: %v", e.Serial, e.Err)
}

func (e *IssuanceError) Unwrap() error {
	return e.Err
}

// Retryable is false when retrying cannot help until an operator fixes
// the deployment (signing files or pass images).
func (e *IssuanceError) Retryable() bool {
	return !errors.Is(e.Err, ErrMissingCredentials) && !errors.Is(e.Err, ErrAssetNotFound)
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
