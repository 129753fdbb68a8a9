package errors

import "errors"

var (
	ErrSpawn             = errors.New("spawn error")
	ErrHandshakeTimeout  = errors.New("not ready")
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrJobTimeout        = errors.New("analysis job timed out")
	ErrMoveResolution    = errors.New("played move could not be resolved")
	ErrSchedulerClosed   = errors.New("scheduler is closed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrReportNotFound    = errors.New("report not found")
	ErrPuzzleNotFound    = errors.New("puzzle not found")
	ErrInternal          = errors.New("internal error")
)

// IsEngineFailure reports whether err comes from the engine process layer
// rather than from the caller's input.
func IsEngineFailure(err error) bool {
	return errors.Is(err, ErrSpawn) ||
		errors.Is(err, ErrHandshakeTimeout) ||
		errors.Is(err, ErrEngineUnavailable) ||
		errors.Is(err, ErrSchedulerClosed)
}
