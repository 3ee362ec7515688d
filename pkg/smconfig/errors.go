package smconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Load and ForceReload once the provider has been closed.
	ErrClosed = errors.New("smconfig: provider closed")
	// ErrAlreadyLoaded is returned by a second call to Load.
	ErrAlreadyLoaded = errors.New("smconfig: provider already loaded")
)

// MissingSecretValueError reports a secret that was listed or requested but
// whose value could not be found in the store.
type MissingSecretValueError struct {
	Name string
	ID   string
	Err  error
}

func (e *MissingSecretValueError) Error() string {
	return fmt.Sprintf("error retrieving secret value (Secret: %s Arn: %s): %v", e.Name, e.ID, e.Err)
}

func (e *MissingSecretValueError) Unwrap() error {
	return e.Err
}

// UnsupportedLeafError reports a structured secret containing a leaf the
// flattener cannot turn into a configuration value (JSON null).
type UnsupportedLeafError struct {
	Key  string
	Kind string
}

func (e *UnsupportedLeafError) Error() string {
	return fmt.Sprintf("unsupported %s value at key %q", e.Kind, e.Key)
}
