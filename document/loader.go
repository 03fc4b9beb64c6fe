package document

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is the serialization format of an input document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", &ParseError{Format: "", Err: fmt.Errorf("unsupported file format %q (use .yaml, .yml, or .json)", filepath.Ext(path))}
	}
}

// Parse decodes raw bytes into an ordered node tree. Both decoders preserve
// mapping key order; everything downstream depends on that.
func Parse(data []byte, format Format) (*Node, error) {
	switch format {
	case FormatYAML:
		node, err := parseYAML(data)
		if err != nil {
			return nil, &ParseError{Format: format, Err: err}
		}
		return node, nil
	case FormatJSON:
		node, err := parseJSON(data)
		if err != nil {
			return nil, &ParseError{Format: format, Err: err}
		}
		return node, nil
	default:
		return nil, &ParseError{Format: format, Err: fmt.Errorf("unknown format %q", format)}
	}
}

func parseYAML(data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return &Node{Kind: KindNull}, nil
	}
	return fromYAMLNode(&root)
}

func fromYAMLNode(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: KindNull}, nil
		}
		return fromYAMLNode(y.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(y.Alias)
	case yaml.MappingNode:
		node := &Node{Kind: KindMapping, Entries: make([]Entry, 0, len(y.Content)/2)}
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i]
			value, err := fromYAMLNode(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			node.Entries = append(node.Entries, Entry{Key: key.Value, Value: value})
		}
		return node, nil
	case yaml.SequenceNode:
		node := &Node{Kind: KindSequence, Items: make([]*Node, 0, len(y.Content))}
		for _, item := range y.Content {
			value, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			node.Items = append(node.Items, value)
		}
		return node, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(y), nil
	default:
		return nil, fmt.Errorf("unexpected yaml node kind %d at line %d", y.Kind, y.Line)
	}
}

func fromYAMLScalar(y *yaml.Node) *Node {
	switch y.Tag {
	case "!!null":
		return &Node{Kind: KindNull}
	case "!!bool":
		return &Node{Kind: KindBool, Bool: y.Value == "true" || y.Value == "True" || y.Value == "TRUE"}
	case "!!int", "!!float":
		return &Node{Kind: KindNumber, Num: y.Value}
	default:
		return &Node{Kind: KindString, Str: y.Value}
	}
}

// parseJSON builds the tree from the decoder's token stream rather than
// unmarshaling into map[string]any, which would scramble key order.
func parseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}

	// Trailing garbage after the document is an error.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected content after top-level value")
	}

	return node, nil
}

func decodeJSONValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (*Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := &Node{Kind: KindMapping}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				value, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				node.Entries = append(node.Entries, Entry{Key: key, Value: value})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return node, nil
		case '[':
			node := &Node{Kind: KindSequence}
			for dec.More() {
				value, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				node.Items = append(node.Items, value)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return node, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", v)
		}
	case string:
		return &Node{Kind: KindString, Str: v}, nil
	case json.Number:
		return &Node{Kind: KindNumber, Num: v.String()}, nil
	case bool:
		return &Node{Kind: KindBool, Bool: v}, nil
	case nil:
		return &Node{Kind: KindNull}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}
