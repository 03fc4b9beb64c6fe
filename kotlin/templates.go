package kotlin

import (
	"fmt"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"mappingAnnotation": mappingAnnotation,
	"paramAnnotation":   paramAnnotation,
	"kotlinType":        kotlinType,
}

var dataClassTemplate = template.Must(template.New("dataClass").Funcs(templateFuncs).Parse(
	`package {{.Package}}

{{range .Imports}}import {{.}}
{{end}}
{{- if .Description}}
/**
 * {{.Description}}
 */
{{- end}}
{{- range .Annotations}}
{{.}}
{{- end}}
data class {{.Name}}(
{{- range $i, $p := .Properties}}
{{- if $i}},{{end}}
{{- range $p.Validation}}
    {{.}}
{{- end}}
{{- if $p.JSONName}}
    @JsonProperty("{{$p.JSONName}}")
{{- end}}
    val {{$p.Name}}: {{kotlinType $p}}
{{- end}}
)
`))

var enumClassTemplate = template.Must(template.New("enumClass").Parse(
	`package {{.Package}}

import com.fasterxml.jackson.annotation.JsonValue

{{- if .Description}}

/**
 * {{.Description}}
 */
{{- end}}
enum class {{.Name}}(@get:JsonValue val value: String) {
{{- range $i, $e := .EnumValues}}
{{- if $i}},{{end}}
    {{$e.Name}}("{{$e.Value}}")
{{- end}};

    companion object {
        fun fromValue(value: String): {{.Name}} =
            entries.firstOrNull { it.value == value }
                ?: throw IllegalArgumentException("unknown {{.Name}} value: $value")
    }
}
`))

var sealedClassTemplate = template.Must(template.New("sealedClass").Funcs(templateFuncs).Parse(
	`package {{.Package}}

import com.fasterxml.jackson.annotation.JsonProperty
import com.fasterxml.jackson.annotation.JsonSubTypes
import com.fasterxml.jackson.annotation.JsonTypeInfo

{{- if .Description}}

/**
 * {{.Description}}
 */
{{- end}}
@JsonTypeInfo(
    use = JsonTypeInfo.Id.NAME,
    include = JsonTypeInfo.As.EXISTING_PROPERTY,
    property = "{{.DiscriminatorProperty}}",
    visible = true,
)
@JsonSubTypes(
{{- range .SubTypeMappings}}
    JsonSubTypes.Type(value = {{.ClassName}}::class, name = "{{.Value}}"),
{{- end}}
)
sealed class {{.Name}}
{{range .SubTypes}}
{{- if .Properties}}
data class {{.Name}}(
{{- range $i, $p := .Properties}}
{{- if $i}},{{end}}
{{- if $p.JSONName}}
    @JsonProperty("{{$p.JSONName}}")
{{- end}}
    val {{$p.Name}}: {{kotlinType $p}}
{{- end}}
) : {{.Parent}}()
{{- else}}
data object {{.Name}} : {{.Parent}}()
{{- end}}
{{end}}`))

var controllerTemplate = template.Must(template.New("controller").Funcs(templateFuncs).Parse(
	`package {{.Package}}

{{range .Imports}}import {{.}}
{{end}}
interface {{.Name}} {
{{- range $i, $m := .Methods}}
{{- if $i}}
{{end}}
{{- if $m.Summary}}
    /**
     * {{$m.Summary}}
     */
{{- end}}
{{- range $m.Annotations}}
    {{.}}
{{- end}}
    {{mappingAnnotation $m}}
    fun {{$m.Name}}(
{{- range $m.Parameters}}
        {{paramAnnotation .}} {{.Name}}: {{.Type}}{{if not .Required}}?{{end}},
{{- end}}
{{- if $m.RequestBody}}
        @Valid @RequestBody {{$m.RequestBody.Name}}: {{$m.RequestBody.Type}}{{if not $m.RequestBody.Required}}?{{end}},
{{- end}}
    ): ResponseEntity<{{$m.ReturnType}}>
{{- end}}
}
`))

var buildFileTemplate = template.Must(template.New("buildFile").Parse(
	`plugins {
    kotlin("jvm") version "1.9.25"
    kotlin("plugin.spring") version "1.9.25"
    id("org.springframework.boot") version "3.3.4"
    id("io.spring.dependency-management") version "1.1.6"
}

group = "{{.Group}}"
version = "0.1.0"

repositories {
    mavenCentral()
}

dependencies {
    implementation("org.springframework.boot:spring-boot-starter-web")
    implementation("com.fasterxml.jackson.module:jackson-module-kotlin")
{{- if .IncludeValidation}}
    implementation("org.springframework.boot:spring-boot-starter-validation")
{{- end}}
{{- if .IncludeSwagger}}
    implementation("org.springdoc:springdoc-openapi-starter-webmvc-ui:2.6.0")
{{- end}}
}

kotlin {
    jvmToolchain(21)
}
`))

// renderClass renders a data class, enum class, or sealed hierarchy.
func renderClass(class Class) (string, error) {
	var tmpl *template.Template
	switch {
	case len(class.EnumValues) > 0:
		tmpl = enumClassTemplate
	case class.Sealed:
		tmpl = sealedClassTemplate
	default:
		tmpl = dataClassTemplate
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, class); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderController(controller Controller) (string, error) {
	var sb strings.Builder
	if err := controllerTemplate.Execute(&sb, controller); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderBuildFile(cfg Config) string {
	var sb strings.Builder
	// The template has no failure modes for this input shape.
	_ = buildFileTemplate.Execute(&sb, struct {
		Group             string
		IncludeValidation bool
		IncludeSwagger    bool
	}{
		Group:             cfg.BasePackage,
		IncludeValidation: cfg.IncludeValidation,
		IncludeSwagger:    cfg.IncludeSwagger,
	})
	return sb.String()
}

// kotlinType renders a property's type reference with nullability and
// default value.
func kotlinType(p PropertyDecl) string {
	t := p.Type
	if p.Nullable {
		t += "?"
	}
	switch {
	case p.Default != "":
		t += " = " + p.Default
	case p.Nullable:
		t += " = null"
	}
	return t
}

func mappingAnnotation(m Method) string {
	var name string
	switch strings.ToUpper(m.HTTPMethod) {
	case "GET":
		name = "GetMapping"
	case "POST":
		name = "PostMapping"
	case "PUT":
		name = "PutMapping"
	case "PATCH":
		name = "PatchMapping"
	case "DELETE":
		name = "DeleteMapping"
	default:
		return fmt.Sprintf("@RequestMapping(method = [RequestMethod.%s], path = [%q])",
			strings.ToUpper(m.HTTPMethod), m.Path)
	}
	return fmt.Sprintf("@%s(%q)", name, m.Path)
}

func paramAnnotation(p Parameter) string {
	switch p.Kind {
	case ParamPath:
		return fmt.Sprintf("@PathVariable(%q)", p.WireName)
	case ParamQuery:
		return fmt.Sprintf("@RequestParam(value = %q, required = %t)", p.WireName, p.Required)
	case ParamHeader:
		return fmt.Sprintf("@RequestHeader(value = %q, required = %t)", p.WireName, p.Required)
	default:
		return "@RequestBody"
	}
}
