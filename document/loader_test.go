package document

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "api.yaml", want: FormatYAML},
		{path: "api.yml", want: FormatYAML},
		{path: "API.YAML", want: FormatYAML},
		{path: "api.json", want: FormatJSON},
		{path: "api.txt", wantErr: true},
		{path: "api", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DetectFormat(%q) = %v, want error", tt.path, got)
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("DetectFormat(%q) error type = %T, want *ParseError", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat(%q) error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Fatalf("DetectFormat(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseYAMLPreservesKeyOrder(t *testing.T) {
	data := []byte(`
zebra: 1
alpha: 2
middle: 3
`)
	node, err := Parse(data, FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.Kind != KindMapping {
		t.Fatalf("kind = %v, want mapping", node.Kind)
	}

	var keys []string
	for _, entry := range node.Entries {
		keys = append(keys, entry.Key)
	}
	want := "zebra,alpha,middle"
	if got := strings.Join(keys, ","); got != want {
		t.Fatalf("key order = %s, want %s", got, want)
	}
}

func TestParseJSONPreservesKeyOrder(t *testing.T) {
	data := []byte(`{"zebra": 1, "alpha": {"inner2": true, "inner1": false}, "middle": [1, 2]}`)
	node, err := Parse(data, FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var keys []string
	for _, entry := range node.Entries {
		keys = append(keys, entry.Key)
	}
	if got := strings.Join(keys, ","); got != "zebra,alpha,middle" {
		t.Fatalf("key order = %s, want zebra,alpha,middle", got)
	}

	inner := node.MappingOf("alpha")
	if inner == nil || len(inner.Entries) != 2 || inner.Entries[0].Key != "inner2" {
		t.Fatalf("nested key order not preserved: %+v", inner)
	}
}

func TestParseYAMLScalars(t *testing.T) {
	data := []byte(`
str: hello
num: 42
flt: 3.5
yes: true
no: false
nothing: null
`)
	node, err := Parse(data, FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := node.StringOf("str"); got != "hello" {
		t.Errorf("str = %q", got)
	}
	numNode, _ := node.Get("num")
	if n, ok := numNode.Int64(); !ok || n != 42 {
		t.Errorf("num = %v, %v", n, ok)
	}
	fltNode, _ := node.Get("flt")
	if f, ok := fltNode.Float64(); !ok || f != 3.5 {
		t.Errorf("flt = %v, %v", f, ok)
	}
	if b, ok := node.BoolOf("yes"); !ok || !b {
		t.Errorf("yes = %v, %v", b, ok)
	}
	if b, ok := node.BoolOf("no"); !ok || b {
		t.Errorf("no = %v, %v", b, ok)
	}
	nothing, ok := node.Get("nothing")
	if !ok || nothing.Kind != KindNull {
		t.Errorf("nothing = %+v", nothing)
	}
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "trailing garbage", data: `{"a": 1} extra`},
		{name: "truncated object", data: `{"a":`},
		{name: "not json", data: `::::`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), FormatJSON); err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.data)
			}
		})
	}
}

func TestWriteCanonicalIsStable(t *testing.T) {
	yamlNode, err := Parse([]byte("a: 1\nb: [x, y]\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Parse yaml: %v", err)
	}
	jsonNode, err := Parse([]byte(`{"a": 1, "b": ["x", "y"]}`), FormatJSON)
	if err != nil {
		t.Fatalf("Parse json: %v", err)
	}

	var a, b strings.Builder
	yamlNode.WriteCanonical(&a)
	jsonNode.WriteCanonical(&b)
	if a.String() != b.String() {
		t.Fatalf("canonical forms differ:\n%s\n%s", a.String(), b.String())
	}
}
