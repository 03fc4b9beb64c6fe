package resolve

import (
	"fmt"
	"strings"
)

// ReferenceNotFoundError reports a local $ref whose pointer does not resolve
// to a node in the document.
type ReferenceNotFoundError struct {
	// Pointer is the full $ref value.
	Pointer string
	// Segment is the first path segment that could not be resolved.
	Segment string
	// Path is the document path where the $ref appeared.
	Path string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("reference %q not found at %s: segment %q does not exist; ensure the referenced component exists in the components section",
		e.Pointer, e.Path, e.Segment)
}

// CircularReferenceError reports a reference cycle. Chain holds the pointers
// on the resolution stack, outermost first, ending with the pointer that
// closed the cycle.
type CircularReferenceError struct {
	Chain []string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference detected: %s", strings.Join(e.Chain, " -> "))
}

// Pointer returns the pointer that closed the cycle.
func (e *CircularReferenceError) Pointer() string {
	if len(e.Chain) == 0 {
		return ""
	}
	return e.Chain[len(e.Chain)-1]
}

// UnsupportedSchemaShapeError reports a structurally invalid schema, such as
// a oneOf with zero variants.
type UnsupportedSchemaShapeError struct {
	Shape string
	Path  string
}

func (e *UnsupportedSchemaShapeError) Error() string {
	return fmt.Sprintf("unsupported schema shape at %s: %s", e.Path, e.Shape)
}

// SchemaCompositionError reports a conflicting allOf merge or an ambiguous
// discriminator mapping.
type SchemaCompositionError struct {
	// Op is the composition keyword involved: "allOf", "oneOf" or "anyOf".
	Op     string
	Path   string
	Reason string
}

func (e *SchemaCompositionError) Error() string {
	return fmt.Sprintf("schema composition error in %s at %s: %s", e.Op, e.Path, e.Reason)
}

// ExternalReferenceError wraps a failure from the external reference
// collaborator, keeping the original cause attached.
type ExternalReferenceError struct {
	Pointer string
	Err     error
}

func (e *ExternalReferenceError) Error() string {
	return fmt.Sprintf("external reference %q: %v", e.Pointer, e.Err)
}

func (e *ExternalReferenceError) Unwrap() error { return e.Err }

// RecursionLimitError reports that schema nesting exceeded the configured
// depth cap. The cap is independent of cycle detection; it guards against
// pathological non-cyclic nesting.
type RecursionLimitError struct {
	Limit int
	Path  string
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("schema nesting at %s exceeds the maximum depth of %d", e.Path, e.Limit)
}

// SchemaError attributes a resolution failure to a named top-level schema.
type SchemaError struct {
	Name string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %q: %v", e.Name, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// CatalogError aggregates every schema failure found in one catalog pass, so
// a single run reports the complete picture instead of the first failure.
type CatalogError struct {
	Errors []error
}

func (e *CatalogError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("catalog construction failed: %v", e.Errors[0])
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "catalog construction failed with %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (e *CatalogError) Unwrap() []error { return e.Errors }
