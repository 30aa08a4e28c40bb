package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// ErrorDetails is the decomposed view of an error produced by Wrap.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Details classifies err by marker and returns its message without the marker prefix.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	kind := "unknown"
	for _, marker := range []error{ErrConfiguration, ErrValidation, ErrNotFound, ErrTimeout, ErrExternalTool} {
		if errors.Is(err, marker) {
			kind = marker.Error()
			break
		}
	}
	message := strings.TrimSpace(err.Error())
	if kind != "unknown" {
		message = strings.TrimSpace(strings.TrimPrefix(message, kind+":"))
	}
	return ErrorDetails{Kind: kind, Message: message}
}

// Hint returns a short operator-facing next step for the error class.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "fix the configuration and rerun"
	case errors.Is(err, ErrNotFound):
		return "rerun the earlier stage that produces the missing input"
	case errors.Is(err, ErrValidation):
		return "inspect the stage output, then rerun from this stage"
	case errors.Is(err, ErrExternalTool):
		return "check the tool output above, then rerun with --stage set to this stage"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
