package quality

import (
	"errors"
	"fmt"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// ModuleValidationError reports a failure while scoring a single module. The
// coordinator converts it into a failed QualityCheck rather than aborting the
// batch.
type ModuleValidationError struct {
	Module writing.ModuleKind
	Cause  error
}

func (e *ModuleValidationError) Error() string {
	return fmt.Sprintf("validating module %s: %v", e.Module, e.Cause)
}

func (e *ModuleValidationError) Unwrap() error {
	return e.Cause
}

// IsModuleValidationError reports whether err is a per-module scoring failure.
func IsModuleValidationError(err error) bool {
	var mve *ModuleValidationError
	return errors.As(err, &mve)
}

// ErrMetricOutOfRange indicates a module reported a quality metric outside
// [0,1], which breaks the scoring contract for that module.
var ErrMetricOutOfRange = errors.New("quality metric outside [0,1]")
