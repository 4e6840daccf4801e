package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConfig            = errors.New("configuration error")
	ErrMissingToken      = errors.New("missing or placeholder api token")
	ErrUpstream          = errors.New("upstream request failed")
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrRefreshFailed     = errors.New("directory refresh failed")
	ErrPersist           = errors.New("persist failed")

	ErrInvalidBackend  = errors.New("invalid backend")
	ErrDataStoreAccess = errors.New("data store read/write error")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
