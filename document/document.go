package document

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Document is a parsed OpenAPI 3.x document. It owns the node tree for the
// duration of one generation run; resolution logic borrows nodes but never
// mutates them.
type Document struct {
	Root *Node

	path string
}

// httpMethods in the order OpenAPI path items declare them.
var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Load reads and parses an OpenAPI document from disk, then validates the
// minimal structure generation depends on.
func Load(path string) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return FromBytes(data, format, path)
}

// FromBytes parses an in-memory document. The path is only used for messages.
func FromBytes(data []byte, format Format, path string) (*Document, error) {
	root, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	doc := &Document{Root: root, path: path}
	if err := doc.validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// New wraps an already-parsed node tree without validation. Intended for
// tests and for callers that assemble documents programmatically.
func New(root *Node) *Document {
	return &Document{Root: root}
}

// Path returns the source file path, when the document came from disk.
func (d *Document) Path() string { return d.path }

func (d *Document) validate() error {
	if d.Root == nil || d.Root.Kind != KindMapping {
		return &MissingFieldError{Field: "openapi", Path: "$"}
	}

	version := d.Root.StringOf("openapi")
	if version == "" {
		return &MissingFieldError{Field: "openapi", Path: "$"}
	}
	if !strings.HasPrefix(version, "3.") {
		return &UnsupportedVersionError{Version: version}
	}

	info := d.Root.MappingOf("info")
	if info == nil || info.StringOf("title") == "" {
		return &MissingFieldError{Field: "title", Path: "$.info"}
	}
	if info.StringOf("version") == "" {
		return &MissingFieldError{Field: "version", Path: "$.info"}
	}

	paths := d.Root.MappingOf("paths")
	if paths == nil || len(paths.Entries) == 0 {
		return &MissingFieldError{Field: "paths", Path: "$"}
	}

	return nil
}

// Version returns the document's declared OpenAPI version.
func (d *Document) Version() string { return d.Root.StringOf("openapi") }

// Title returns info.title.
func (d *Document) Title() string {
	if info := d.Root.MappingOf("info"); info != nil {
		return info.StringOf("title")
	}
	return ""
}

// SchemaEntries returns components.schemas in declaration order.
func (d *Document) SchemaEntries() []Entry {
	components := d.Root.MappingOf("components")
	if components == nil {
		return nil
	}
	schemas := components.MappingOf("schemas")
	if schemas == nil {
		return nil
	}
	return schemas.Entries
}

// Operation is one HTTP operation under paths.
type Operation struct {
	Path   string
	Method string
	Node   *Node
}

// Tags returns the operation tags declared anywhere in the operation node.
func (op Operation) Tags() []string {
	var tags []string
	for _, t := range op.Node.SequenceOf("tags") {
		if t.Kind == KindString {
			tags = append(tags, t.Str)
		}
	}
	return tags
}

// OperationID returns the declared operationId, or "".
func (op Operation) OperationID() string { return op.Node.StringOf("operationId") }

// Operations enumerates every operation under paths in declaration order.
func (d *Document) Operations() []Operation {
	paths := d.Root.MappingOf("paths")
	if paths == nil {
		return nil
	}

	var ops []Operation
	for _, pathEntry := range paths.Entries {
		item := pathEntry.Value
		if item == nil || item.Kind != KindMapping {
			continue
		}
		for _, method := range httpMethods {
			if opNode := item.MappingOf(method); opNode != nil {
				ops = append(ops, Operation{Path: pathEntry.Key, Method: method, Node: opNode})
			}
		}
	}
	return ops
}

// OperationsByTag groups operations by tag, falling back to "Default" for
// untagged operations. Tag order follows first appearance in the document.
func (d *Document) OperationsByTag() ([]string, map[string][]Operation) {
	var order []string
	grouped := make(map[string][]Operation)

	for _, op := range d.Operations() {
		tags := op.Tags()
		if len(tags) == 0 {
			tags = []string{"Default"}
		}
		for _, tag := range tags {
			if _, seen := grouped[tag]; !seen {
				order = append(order, tag)
			}
			grouped[tag] = append(grouped[tag], op)
		}
	}

	return order, grouped
}

// AllTags returns the sorted union of globally declared tags and tags
// referenced by any operation.
func (d *Document) AllTags() []string {
	seen := make(map[string]struct{})

	for _, t := range d.Root.SequenceOf("tags") {
		if name := t.StringOf("name"); name != "" {
			seen[name] = struct{}{}
		}
	}
	for _, op := range d.Operations() {
		for _, tag := range op.Tags() {
			seen[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
