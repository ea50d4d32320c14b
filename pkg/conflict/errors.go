package conflict

import (
	"errors"
	"fmt"

	"github.com/vampirenirmal/arbiter/pkg/writing"
)

// MissingStrategyError reports a conflict type with no registered resolution
// strategy. The resolver converts it into a fallback resolution and keeps
// going.
type MissingStrategyError struct {
	Type writing.ConflictType
}

func (e *MissingStrategyError) Error() string {
	return fmt.Sprintf("no resolution strategy registered for conflict type %q", e.Type)
}

// IsMissingStrategy reports whether err indicates an unregistered conflict type.
func IsMissingStrategy(err error) bool {
	var mse *MissingStrategyError
	return errors.As(err, &mse)
}

// ErrNoModules indicates a conflict arrived without any participating modules,
// leaving nothing to arbitrate between.
var ErrNoModules = errors.New("conflict lists no modules")
