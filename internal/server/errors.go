package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConfigError marks a failure caused by missing or broken deployment setup
// rather than by the caller's input.
type ConfigError struct {
	Message     string
	Remediation string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

type statusCoder interface {
	StatusCode() int
}

// errorKind buckets every failure into the rendered taxonomy.
type errorKind int

const (
	errorKindUserInput errorKind = iota
	errorKindConfig
	errorKindInternal
)

// classifiedError is the dispatcher's single rendering of a tool failure.
// Internal faults carry a correlation ID that is both logged and shown to
// the caller; user-input faults are guidance only and never logged as
// system errors.
type classifiedError struct {
	kind          errorKind
	status        int
	message       string
	correlationID string
}

// classifyError folds any handler failure into the error taxonomy. It is
// the only place that decides how an error is shown, so tool code never
// worries about rendering.
func classifyError(err error, logger zerolog.Logger) classifiedError {
	if err == nil {
		return classifiedError{kind: errorKindInternal, status: http.StatusInternalServerError, message: "unknown tool execution error"}
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		message := strings.TrimSpace(cfgErr.Message)
		if remediation := strings.TrimSpace(cfgErr.Remediation); remediation != "" {
			message = fmt.Sprintf("%s. %s", message, remediation)
		}
		logger.Warn().Str("detail", cfgErr.Message).Msg("tool call failed on configuration")
		return classifiedError{kind: errorKindConfig, status: http.StatusServiceUnavailable, message: message}
	}

	var withStatus statusCoder
	if errors.As(err, &withStatus) {
		status := withStatus.StatusCode()
		if status >= 400 && status < 500 {
			return classifiedError{kind: errorKindUserInput, status: status, message: errorMessage(err)}
		}
	}

	correlationID := uuid.NewString()
	logger.Error().
		Err(err).
		Str("correlation_id", correlationID).
		Msg("tool call failed internally")
	return classifiedError{
		kind:          errorKindInternal,
		status:        http.StatusInternalServerError,
		message:       fmt.Sprintf("an internal error occurred; it is not caused by your input and retrying with different parameters will not help (correlation ID %s)", correlationID),
		correlationID: correlationID,
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown tool execution error"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "unknown tool execution error"
	}
	return message
}
