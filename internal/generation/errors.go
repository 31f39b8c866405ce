package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationInvalid marks a generation response that failed structural
	// validation. Nothing from such a response is kept.
	ErrGenerationInvalid = errors.New("generation response invalid")
	// ErrServiceFailed marks a failed call to the generation service. It
	// matches ErrGenerationInvalid so callers treat both as a discarded response.
	ErrServiceFailed = fmt.Errorf("%w: generation service call failed", ErrGenerationInvalid)
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = fmt.Errorf("%w: generation service not configured", ErrServiceFailed)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGenerationInvalid, fmt.Sprintf(format, args...))
}
