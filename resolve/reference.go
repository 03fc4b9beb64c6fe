package resolve

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openapikt/openapikt/document"
)

// ExternalResolver resolves references that point outside the current
// document (file paths or URLs). The transport, and any restriction on
// allowed locations, lives behind this interface; the engine only wraps
// failures in ExternalReferenceError and applies the configured timeout.
type ExternalResolver interface {
	Resolve(ctx context.Context, pointer string) (*document.Node, error)
}

// DisabledExternalResolver rejects every external reference. It is the
// default collaborator.
type DisabledExternalResolver struct{}

func (DisabledExternalResolver) Resolve(_ context.Context, pointer string) (*document.Node, error) {
	return nil, errors.New("external references are disabled")
}

// IsLocalPointer reports whether the pointer resolves within the document.
func IsLocalPointer(pointer string) bool {
	return strings.HasPrefix(pointer, "#/")
}

// SchemaNameFromPointer returns the last pointer segment, which for
// component references is the schema name.
func SchemaNameFromPointer(pointer string) string {
	idx := strings.LastIndex(pointer, "/")
	if idx < 0 || idx == len(pointer)-1 {
		return pointer
	}
	return unescapePointerSegment(pointer[idx+1:])
}

// unescapePointerSegment applies JSON Pointer unescaping: ~1 before ~0, per
// RFC 6901.
func unescapePointerSegment(segment string) string {
	if !strings.Contains(segment, "~") {
		return segment
	}
	segment = strings.ReplaceAll(segment, "~1", "/")
	return strings.ReplaceAll(segment, "~0", "~")
}

// resolver walks $ref pointers to raw nodes. It is pure with respect to
// caching; the composer owns cache policy.
type resolver struct {
	doc             *document.Document
	external        ExternalResolver
	externalTimeout time.Duration
}

// resolve returns the raw node a pointer designates. The returned node may
// itself be a $ref or contain refs; following those is the composer's job.
func (r *resolver) resolve(ctx context.Context, pointer, atPath string) (*document.Node, error) {
	if !IsLocalPointer(pointer) {
		return r.resolveExternal(ctx, pointer)
	}

	node := r.doc.Root
	for _, segment := range strings.Split(pointer[2:], "/") {
		key := unescapePointerSegment(segment)
		next, ok := node.Get(key)
		if !ok {
			return nil, &ReferenceNotFoundError{Pointer: pointer, Segment: key, Path: atPath}
		}
		node = next
	}
	return node, nil
}

func (r *resolver) resolveExternal(ctx context.Context, pointer string) (*document.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, r.externalTimeout)
	defer cancel()

	node, err := r.external.Resolve(ctx, pointer)
	if err != nil {
		return nil, &ExternalReferenceError{Pointer: pointer, Err: err}
	}
	return node, nil
}

// trail is the set of pointers on the current reference-resolution call
// stack. Membership means "currently being resolved", not "ever seen":
// pointers are pushed when a $ref is followed and popped once its target's
// composition completes, so independent top-level resolutions never share a
// trail.
type trail struct {
	active map[string]struct{}
	stack  []string
}

func newTrail() *trail {
	return &trail{active: make(map[string]struct{})}
}

// enter pushes a pointer, failing with the full chain when it is already on
// the stack.
func (t *trail) enter(pointer string) error {
	if _, ok := t.active[pointer]; ok {
		chain := make([]string, 0, len(t.stack)+1)
		chain = append(chain, t.stack...)
		chain = append(chain, pointer)
		return &CircularReferenceError{Chain: chain}
	}
	t.active[pointer] = struct{}{}
	t.stack = append(t.stack, pointer)
	return nil
}

func (t *trail) leave(pointer string) {
	delete(t.active, pointer)
	if n := len(t.stack); n > 0 && t.stack[n-1] == pointer {
		t.stack = t.stack[:n-1]
	}
}

func (t *trail) contains(pointer string) bool {
	_, ok := t.active[pointer]
	return ok
}
