package stage

import "errors"

// TransientError wraps failures worth retrying: timeouts, rate limits,
// 5xx-equivalent provider responses, network errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError wraps failures that will not improve on retry: malformed
// provider responses, 4xx-equivalent rejections, provider-reported failures.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// Permanent marks err as not retryable.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is classified as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
