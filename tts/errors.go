package tts

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for the read-along engine.
var (
	// Taxonomy sentinels. TTSError values match these with errors.Is.
	ErrConfiguration      = errors.New("invalid configuration")
	ErrBackendUnavailable = errors.New("speech backend is not available")
	ErrSynthesisFailure   = errors.New("speech synthesis failed")
	ErrInterrupted        = errors.New("speech was interrupted")
	ErrUserCancelled      = errors.New("speech was cancelled")

	// Input errors
	ErrEmptyText = errors.New("text is empty")

	// Controller errors
	ErrControllerClosed = errors.New("controller has been closed")
)

// ErrorKind classifies failures reported to callers.
type ErrorKind int

const (
	// KindConfiguration is invalid or empty input, rejected synchronously.
	KindConfiguration ErrorKind = iota
	// KindBackendUnavailable means the platform primitive is absent.
	KindBackendUnavailable
	// KindSynthesisFailure is a backend failure mid-utterance.
	KindSynthesisFailure
	// KindInterrupted means another speech request pre-empted ours.
	KindInterrupted
	// KindUserCancelled is an explicit stop.
	KindUserCancelled
)

// String returns the name callers see in OnError.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindSynthesisFailure:
		return "SynthesisFailure"
	case KindInterrupted:
		return "Interrupted"
	case KindUserCancelled:
		return "UserCancelled"
	default:
		return "Unknown"
	}
}

// Sentinel returns the sentinel error for the kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindBackendUnavailable:
		return ErrBackendUnavailable
	case KindSynthesisFailure:
		return ErrSynthesisFailure
	case KindInterrupted:
		return ErrInterrupted
	case KindUserCancelled:
		return ErrUserCancelled
	default:
		return nil
	}
}

// IsRecoverableError checks if an error is recoverable.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrBackendUnavailable),
		errors.Is(err, ErrControllerClosed):
		return false
	}

	return true
}

// ErrorSeverity represents the severity of an error.
type ErrorSeverity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is for warnings that don't prevent operation.
	SeverityWarning
	// SeverityError is for errors that prevent normal operation.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// TTSError provides detailed error information.
type TTSError struct {
	Kind      ErrorKind      // Taxonomy bucket
	Err       error          // The underlying error
	Component string         // Component that generated the error
	Action    string         // Action being performed when error occurred
	Severity  ErrorSeverity  // Severity of the error
	Timestamp int64          // Unix timestamp when error occurred
	Context   map[string]any // Additional context
}

// Error implements the error interface.
func (e *TTSError) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Component != "" {
		return e.Component + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TTSError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the error's kind.
func (e *TTSError) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// IsRecoverable checks if the error is recoverable.
func (e *TTSError) IsRecoverable() bool {
	return IsRecoverableError(e)
}

// NewTTSError creates a new TTS error with context.
func NewTTSError(kind ErrorKind, err error, component, action string) *TTSError {
	return &TTSError{
		Kind:      kind,
		Err:       err,
		Component: component,
		Action:    action,
		Severity:  SeverityError,
		Timestamp: time.Now().Unix(),
		Context:   make(map[string]any),
	}
}

// WithSeverity sets the error severity.
func (e *TTSError) WithSeverity(severity ErrorSeverity) *TTSError {
	e.Severity = severity
	return e
}

// WithContext adds context to the error.
func (e *TTSError) WithContext(key string, value any) *TTSError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf returns the taxonomy bucket of err. Errors outside the taxonomy
// are reported as synthesis failures.
func KindOf(err error) ErrorKind {
	var te *TTSError
	if errors.As(err, &te) {
		return te.Kind
	}
	for _, k := range []ErrorKind{
		KindConfiguration,
		KindBackendUnavailable,
		KindInterrupted,
		KindUserCancelled,
	} {
		if errors.Is(err, k.Sentinel()) {
			return k
		}
	}
	return KindSynthesisFailure
}
