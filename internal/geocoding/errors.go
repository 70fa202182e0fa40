package geocoding

import (
	"fmt"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// ProviderError records a failed provider invocation. Provider errors are
// always recovered where they happen: counted, logged, and treated as a miss.
type ProviderError struct {
	Provider models.Service
	Err      error
}

// NewProviderError wraps err with the provider that produced it.
func NewProviderError(provider models.Service, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
