package kotlin

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/openapikt/openapikt/resolve"
)

// mapper converts resolved schemas into Kotlin declarations.
type mapper struct {
	cfg Config
}

// TypeOf maps a resolved schema to a Kotlin type expression. Named object
// and union schemas map to their generated class; everything structural is
// mapped inline.
func (m *mapper) TypeOf(s *resolve.Schema) string {
	if s == nil {
		return "Any"
	}

	switch s.Kind {
	case resolve.KindPrimitive:
		if len(s.Enum) > 0 && s.SourceName != "" {
			return ClassName(s.SourceName)
		}
		return m.primitiveType(s)
	case resolve.KindArray:
		return fmt.Sprintf("List<%s>", m.TypeOf(s.Items))
	case resolve.KindObject:
		// Property-less objects have no class of their own, named or not.
		if s.SourceName != "" && len(s.Properties) > 0 {
			return ClassName(s.SourceName)
		}
		if len(s.Properties) == 0 && s.AdditionalProperties != nil {
			return fmt.Sprintf("Map<String, %s>", m.TypeOf(s.AdditionalProperties))
		}
		// Anonymous objects with properties have no generated class to
		// point at; a loose map is the best available representation.
		return "Map<String, Any>"
	case resolve.KindUnion, resolve.KindFlexibleUnion:
		if s.SourceName != "" && s.Discriminator != nil {
			return ClassName(s.SourceName)
		}
		return "Any"
	default:
		return "Any"
	}
}

func (m *mapper) primitiveType(s *resolve.Schema) string {
	switch s.Type {
	case "string":
		switch s.Format {
		case "date":
			return "java.time.LocalDate"
		case "date-time":
			return "java.time.OffsetDateTime"
		case "uuid":
			return "java.util.UUID"
		case "uri":
			return "java.net.URI"
		case "byte", "binary":
			return "ByteArray"
		default:
			return "String"
		}
	case "integer":
		if s.Format == "int64" {
			return "Long"
		}
		return "Int"
	case "number":
		switch s.Format {
		case "float":
			return "Float"
		case "double":
			return "Double"
		default:
			return "java.math.BigDecimal"
		}
	case "boolean":
		return "Boolean"
	default:
		return "Any"
	}
}

// ValidationFor produces jakarta validation annotations for a property.
func (m *mapper) ValidationFor(s *resolve.Schema, required bool) []string {
	if !m.cfg.IncludeValidation || s == nil {
		return nil
	}

	var annotations []string
	if required && !s.Nullable {
		annotations = append(annotations, "@NotNull")
	}

	switch s.Kind {
	case resolve.KindPrimitive:
		switch s.Type {
		case "string":
			if s.Format == "email" {
				annotations = append(annotations, "@Email")
			}
			minLen, hasMin := constraintInt(s, "minLength")
			maxLen, hasMax := constraintInt(s, "maxLength")
			if hasMin || hasMax {
				annotations = append(annotations, sizeAnnotation(minLen, maxLen, hasMax))
			}
			if pattern, ok := s.Constraint("pattern"); ok {
				annotations = append(annotations, fmt.Sprintf("@Pattern(regexp = %q)", pattern))
			}
		case "integer", "number":
			if minimum, ok := constraintInt(s, "minimum"); ok {
				annotations = append(annotations, fmt.Sprintf("@Min(%d)", minimum))
			}
			if maximum, ok := constraintInt(s, "maximum"); ok {
				annotations = append(annotations, fmt.Sprintf("@Max(%d)", maximum))
			}
		}
	case resolve.KindArray:
		minItems, hasMin := constraintInt(s, "minItems")
		maxItems, hasMax := constraintInt(s, "maxItems")
		if hasMin || hasMax {
			annotations = append(annotations, sizeAnnotation(minItems, maxItems, hasMax))
		}
	case resolve.KindObject:
		if len(s.Properties) > 0 {
			annotations = append(annotations, "@Valid")
		}
	}

	return annotations
}

func sizeAnnotation(minValue, maxValue int64, hasMax bool) string {
	maxText := "Integer.MAX_VALUE"
	if hasMax {
		maxText = strconv.FormatInt(maxValue, 10)
	}
	return fmt.Sprintf("@Size(min = %d, max = %s)", minValue, maxText)
}

// constraintInt reads a numeric constraint as int64.
func constraintInt(s *resolve.Schema, keyword string) (int64, bool) {
	v, ok := s.Constraint(keyword)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// ClassFor converts one named schema into its Kotlin class.
func (m *mapper) ClassFor(name string, s *resolve.Schema) (Class, bool) {
	className := ClassName(name)

	if s.Kind == resolve.KindPrimitive && len(s.Enum) > 0 {
		return m.enumClass(className, s), true
	}

	if (s.Kind == resolve.KindUnion || s.Kind == resolve.KindFlexibleUnion) && s.Discriminator != nil {
		return m.sealedClass(className, s), true
	}

	if s.Kind != resolve.KindObject || len(s.Properties) == 0 {
		// Primitive aliases, undiscriminated unions and free-form objects
		// have no class of their own; usages are mapped inline.
		return Class{}, false
	}

	class := Class{
		Name:        className,
		Package:     m.cfg.BasePackage + ".model",
		Description: s.Description,
	}
	if m.cfg.IncludeSwagger && s.Description != "" {
		class.Annotations = append(class.Annotations, fmt.Sprintf("@Schema(description = %q)", s.Description))
	}
	for _, p := range s.Properties {
		class.Properties = append(class.Properties, m.propertyDecl(p))
	}
	class.Imports = m.modelImports(class)
	return class, true
}

func (m *mapper) propertyDecl(p resolve.Property) PropertyDecl {
	decl := PropertyDecl{
		Name:       PropertyName(p.Name),
		Type:       m.TypeOf(p.Schema),
		Nullable:   !p.Required || p.Schema.Nullable,
		Validation: m.ValidationFor(p.Schema, p.Required),
	}
	if p.Schema != nil {
		decl.Description = p.Schema.Description
		if p.Schema.Default != nil {
			decl.Default = formatDefault(p.Schema.Default, decl.Type)
		}
	}
	if decl.Name != p.Name {
		decl.JSONName = p.Name
	}
	return decl
}

func (m *mapper) enumClass(className string, s *resolve.Schema) Class {
	class := Class{
		Name:        className,
		Package:     m.cfg.BasePackage + ".model",
		Description: s.Description,
	}
	for _, v := range s.Enum {
		value := fmt.Sprintf("%v", v)
		class.EnumValues = append(class.EnumValues, EnumEntry{
			Name:  EnumEntryName(value),
			Value: value,
		})
	}
	return class
}

func (m *mapper) sealedClass(className string, s *resolve.Schema) Class {
	class := Class{
		Name:                  className,
		Package:               m.cfg.BasePackage + ".model",
		Description:           s.Description,
		Sealed:                true,
		DiscriminatorProperty: s.Discriminator.PropertyName,
	}

	for _, variant := range s.Variants {
		if variant.Kind != resolve.KindObject {
			continue
		}
		subName := ClassName(variant.SourceName)
		if variant.SourceName == "" {
			subName = className + "Variant"
		}
		sub := Class{
			Name:        subName,
			Package:     class.Package,
			Description: variant.Description,
			Parent:      className,
		}
		for _, p := range variant.Properties {
			sub.Properties = append(sub.Properties, m.propertyDecl(p))
		}
		class.SubTypes = append(class.SubTypes, sub)
	}

	// Stable mapping order for deterministic output.
	values := make([]string, 0, len(s.Discriminator.Mapping))
	for value := range s.Discriminator.Mapping {
		values = append(values, value)
	}
	sort.Strings(values)
	for _, value := range values {
		class.SubTypeMappings = append(class.SubTypeMappings, SubTypeMapping{
			Value:     value,
			ClassName: ClassName(s.Discriminator.Mapping[value]),
		})
	}

	return class
}

func (m *mapper) modelImports(class Class) []string {
	seen := make(map[string]struct{})
	add := func(imp string) { seen[imp] = struct{}{} }

	add("com.fasterxml.jackson.annotation.JsonProperty")
	if m.cfg.IncludeValidation {
		for _, p := range class.Properties {
			if len(p.Validation) > 0 {
				add("jakarta.validation.constraints.*")
				add("jakarta.validation.Valid")
				break
			}
		}
	}
	if len(class.Annotations) > 0 {
		add("io.swagger.v3.oas.annotations.media.Schema")
	}

	imports := make([]string, 0, len(seen))
	for imp := range seen {
		imports = append(imports, imp)
	}
	sort.Strings(imports)
	return imports
}

func formatDefault(value any, kotlinType string) string {
	switch v := value.(type) {
	case string:
		if kotlinType == "String" {
			return strconv.Quote(v)
		}
		return ""
	case bool:
		return strconv.FormatBool(v)
	case int64:
		if kotlinType == "Long" {
			return strconv.FormatInt(v, 10) + "L"
		}
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return ""
	}
}
