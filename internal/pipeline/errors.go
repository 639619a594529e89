package pipeline

import "errors"

// Error kinds reported by the pipeline. Causes from lower layers are wrapped
// underneath, so both the kind and the cause match errors.Is.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrGPU            = errors.New("gpu failure")
	ErrFilter         = errors.New("filter failure")
	ErrUnknownMode    = errors.New("unknown render mode")
	ErrNotInitialized = errors.New("graphics not initialized")
)

// Boundary status codes.
const (
	StatusOK    = 0
	StatusError = -1
)

// Status maps an error to a boundary status code.
func Status(err error) int {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
