package click

import (
	"fmt"

	"github.com/ankogit/clicktrack/internal/audio"
	"github.com/ankogit/clicktrack/internal/timing"
)

var (
	ErrMissingDuration   = timing.ErrMissingDuration
	ErrUnsupportedDepth  = audio.ErrUnsupportedDepth
	ErrContractViolation = audio.ErrContractViolation
)

// ResourceError is an I/O failure on the output container
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s output: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
