package capture

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrEmptyImage        = errors.New("captured image is empty")
	ErrCaptureFailed     = errors.New("capture failed")
	ErrExtractionFailed  = errors.New("could not extract details")
	ErrSaveFailed        = errors.New("failed to save contact")
	ErrBusy              = errors.New("extraction in progress")
)
