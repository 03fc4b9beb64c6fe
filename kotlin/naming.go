package kotlin

import (
	"strings"

	"github.com/stoewer/go-strcase"
)

// hardKeywords cannot be used as Kotlin identifiers without backticks.
var hardKeywords = map[string]struct{}{
	"as": {}, "break": {}, "class": {}, "continue": {}, "do": {}, "else": {},
	"false": {}, "for": {}, "fun": {}, "if": {}, "in": {}, "interface": {},
	"is": {}, "null": {}, "object": {}, "package": {}, "return": {}, "super": {},
	"this": {}, "throw": {}, "true": {}, "try": {}, "typealias": {}, "typeof": {},
	"val": {}, "var": {}, "when": {}, "while": {},
}

// ClassName converts a schema name to an UpperCamelCase Kotlin class name.
func ClassName(name string) string {
	return strcase.UpperCamelCase(sanitize(name))
}

// PropertyName converts a property name to a lowerCamelCase Kotlin
// identifier, backtick-escaping keywords.
func PropertyName(name string) string {
	ident := strcase.LowerCamelCase(sanitize(name))
	if _, reserved := hardKeywords[ident]; reserved {
		return "`" + ident + "`"
	}
	return ident
}

// EnumEntryName converts an enum value to an UPPER_SNAKE_CASE entry name.
func EnumEntryName(value string) string {
	return strings.ToUpper(strcase.SnakeCase(sanitize(value)))
}

// MethodName derives a controller method name from the operationId when
// present, otherwise from the HTTP method and path: "get /users/{id}"
// becomes getUsersById.
func MethodName(operationID, httpMethod, path string) string {
	if operationID != "" {
		return strcase.LowerCamelCase(sanitize(operationID))
	}

	parts := []string{strings.ToLower(httpMethod)}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			parts = append(parts, "by", strings.Trim(segment, "{}"))
			continue
		}
		parts = append(parts, segment)
	}
	return strcase.LowerCamelCase(sanitize(strings.Join(parts, "_")))
}

// PackagePath converts a package name to its directory path.
func PackagePath(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/")
}

// sanitize replaces characters that cannot appear in identifiers with
// underscores so the case converters have clean input.
func sanitize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := strings.Trim(sb.String(), "_")
	if out == "" {
		return "value"
	}
	return out
}
