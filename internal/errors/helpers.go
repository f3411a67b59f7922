package errors

import "fmt"

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key)
}

// NewMissingConfigError creates an error for a required setting that was not supplied
func NewMissingConfigError(key string) *AppError {
	return New(ErrCodeMissingConfig, fmt.Sprintf("missing required %s", key)).
		WithContext("config_key", key)
}

// NewSessionInitError wraps a failure to bring up the Session Client
func NewSessionInitError(err error) *AppError {
	return Wrap(err, ErrCodeSessionInit, "session client initialization failed")
}

// NewAuthFailureError reports a pairing or authentication failure
func NewAuthFailureError(reason string) *AppError {
	return New(ErrCodeAuthFailure, "whatsapp authentication failed").
		WithContext("reason", reason)
}

// NewSessionLostError reports a session identity loss such as a forced logout
func NewSessionLostError(state, reason string) *AppError {
	return New(ErrCodeSessionLost, fmt.Sprintf("session ended with state %s", state)).
		WithContext("state", state).
		WithContext("reason", reason)
}

// NewMetadataLookupError wraps a chat or contact lookup failure for one message
func NewMetadataLookupError(what, messageID string, err error) *AppError {
	return WrapRetryable(err, ErrCodeMetadataLookup, fmt.Sprintf("%s lookup failed", what)).
		WithContext("message_id", messageID)
}

// NewStateFileError wraps a state or start-marker file failure
func NewStateFileError(operation, path string, err error) *AppError {
	return Wrap(err, ErrCodeStateFile, fmt.Sprintf("state file %s failed", operation)).
		WithContext("operation", operation).
		WithContext("file_path", path)
}

// NewForwardError wraps a failed POST to the configured endpoint
func NewForwardError(statusCode int, err error) *AppError {
	appErr := Wrap(err, ErrCodeForward, "forward request failed")
	if statusCode > 0 {
		appErr = appErr.WithContext("status_code", statusCode)
	}
	return appErr
}
