// Package errs defines the error kinds raised by the compilation pipeline.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigurationError reports a malformed or incomplete endpoint declaration,
// missing document metadata or an empty result.
type ConfigurationError struct {
	Filename string
	URI      string
	Msg      string
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Msg)
	if e.Filename != "" || e.URI != "" {
		sb.WriteString(" (")
		if e.Filename != "" {
			sb.WriteString(e.Filename)
		}
		if e.URI != "" {
			if e.Filename != "" {
				sb.WriteString(", ")
			}
			sb.WriteString(e.URI)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Configf builds a ConfigurationError without location information.
func Configf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// At returns a copy of e located at the given file and URI. Existing
// location fields are preserved.
func (e *ConfigurationError) At(filename, uri string) *ConfigurationError {
	out := *e
	if out.Filename == "" {
		out.Filename = filename
	}
	if out.URI == "" {
		out.URI = uri
	}
	return &out
}

// AlignmentError signals that the externalized document and the compiled
// type tree disagree. It is an internal consistency failure.
type AlignmentError struct {
	Path     string
	Expected int
	Actual   int
	Msg      string
}

func (e *AlignmentError) Error() string {
	if e.Expected != e.Actual {
		return fmt.Sprintf("alignment: %s: %s (expected %d, found %d)", e.Path, e.Msg, e.Expected, e.Actual)
	}
	return fmt.Sprintf("alignment: %s: %s", e.Path, e.Msg)
}

// SubprocessFailure reports a schema compiler invocation that exited with a
// non-zero status. Output holds the combined output of the process.
type SubprocessFailure struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *SubprocessFailure) Error() string {
	return fmt.Sprintf("command %q exited with status %d\n%s", e.Command, e.ExitCode, e.Output)
}

// ProtocolViolation is raised when a processor is asked to handle a verb its
// endpoint type does not support.
type ProtocolViolation struct {
	EndpointType string
	Verb         string
	URI          string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("%s endpoints do not support %s (%s)", e.EndpointType, e.Verb, e.URI)
}

// LossyConversionWarning describes information dropped while converting to a
// narrower output format. It is logged, never returned.
type LossyConversionWarning struct {
	URI      string
	Verb     string
	Original string
	Ignored  string
	Msg      string
}

func (w LossyConversionWarning) String() string {
	return fmt.Sprintf("%s; %s - %s [%s] ignored in favor of [%s]", w.Msg, w.URI, w.Verb, w.Ignored, w.Original)
}

// FromValidation converts validator failures into a ConfigurationError that
// names every offending field. Other errors are returned unchanged.
func FromValidation(prefix string, err error) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}

	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		field := ve.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if prefix != "" {
			field = prefix + "." + field
		}
		messages = append(messages, field+": "+formatValidationError(ve))
	}
	return Configf("%s", strings.Join(messages, "; "))
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must contain at least %s entries", ve.Param())
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
