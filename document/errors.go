package document

import "fmt"

// ParseError wraps a malformed YAML/JSON document failure.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s document: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError reports a required document field that is absent or empty.
type MissingFieldError struct {
	Field string
	Path  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q at %s", e.Field, e.Path)
}

// UnsupportedVersionError reports an OpenAPI version outside the 3.x line.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported OpenAPI version %q: only 3.x documents are supported", e.Version)
}
