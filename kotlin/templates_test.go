package kotlin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDataClass(t *testing.T) {
	class := Class{
		Name:        "User",
		Package:     "com.example.api.model",
		Description: "A registered user.",
		Imports: []string{
			"com.fasterxml.jackson.annotation.JsonProperty",
			"jakarta.validation.constraints.*",
		},
		Properties: []PropertyDecl{
			{Name: "id", Type: "java.util.UUID", Validation: []string{"@NotNull"}},
			{Name: "firstName", Type: "String", Nullable: true, JSONName: "first_name"},
			{Name: "age", Type: "Int", Nullable: true, Default: "0"},
		},
	}

	out, err := renderClass(class)
	require.NoError(t, err)

	assert.Contains(t, out, "package com.example.api.model")
	assert.Contains(t, out, "import com.fasterxml.jackson.annotation.JsonProperty")
	assert.Contains(t, out, "A registered user.")
	assert.Contains(t, out, "data class User(")
	assert.Contains(t, out, "@NotNull")
	assert.Contains(t, out, "val id: java.util.UUID")
	assert.Contains(t, out, `@JsonProperty("first_name")`)
	assert.Contains(t, out, "val firstName: String? = null")
	assert.Contains(t, out, "val age: Int? = 0")
}

func TestRenderEnumClass(t *testing.T) {
	class := Class{
		Name:    "Status",
		Package: "com.example.api.model",
		EnumValues: []EnumEntry{
			{Name: "ACTIVE", Value: "active"},
			{Name: "IN_PROGRESS", Value: "in-progress"},
		},
	}

	out, err := renderClass(class)
	require.NoError(t, err)

	assert.Contains(t, out, "enum class Status(@get:JsonValue val value: String)")
	assert.Contains(t, out, `ACTIVE("active")`)
	assert.Contains(t, out, `IN_PROGRESS("in-progress")`)
	assert.Contains(t, out, "fun fromValue(value: String): Status")
}

func TestRenderSealedClass(t *testing.T) {
	class := Class{
		Name:                  "Notification",
		Package:               "com.example.api.model",
		Sealed:                true,
		DiscriminatorProperty: "channel",
		SubTypeMappings: []SubTypeMapping{
			{Value: "email", ClassName: "EmailNotification"},
			{Value: "sms", ClassName: "SmsNotification"},
		},
		SubTypes: []Class{
			{
				Name:   "EmailNotification",
				Parent: "Notification",
				Properties: []PropertyDecl{
					{Name: "address", Type: "String"},
				},
			},
			{
				Name:   "SmsNotification",
				Parent: "Notification",
				Properties: []PropertyDecl{
					{Name: "number", Type: "String"},
				},
			},
		},
	}

	out, err := renderClass(class)
	require.NoError(t, err)

	assert.Contains(t, out, `property = "channel"`)
	assert.Contains(t, out, `JsonSubTypes.Type(value = EmailNotification::class, name = "email")`)
	assert.Contains(t, out, "sealed class Notification")
	assert.Contains(t, out, "data class EmailNotification(")
	assert.Contains(t, out, ") : Notification()")
}

func TestRenderController(t *testing.T) {
	controller := Controller{
		Name:    "UsersController",
		Package: "com.example.api.controller",
		Imports: []string{
			"jakarta.validation.Valid",
			"org.springframework.http.ResponseEntity",
			"org.springframework.web.bind.annotation.*",
		},
		Methods: []Method{
			{
				Name:       "getUserById",
				HTTPMethod: "get",
				Path:       "/users/{id}",
				Summary:    "Fetch one user.",
				Parameters: []Parameter{
					{Name: "id", WireName: "id", Type: "java.util.UUID", Kind: ParamPath, Required: true},
					{Name: "expand", WireName: "expand", Type: "String", Kind: ParamQuery},
				},
				ReturnType: "User",
			},
			{
				Name:        "createUser",
				HTTPMethod:  "post",
				Path:        "/users",
				RequestBody: &Parameter{Name: "body", Type: "CreateUserRequest", Kind: ParamBody, Required: true},
				ReturnType:  "User",
			},
		},
	}

	out, err := renderController(controller)
	require.NoError(t, err)

	assert.Contains(t, out, "interface UsersController {")
	assert.Contains(t, out, "Fetch one user.")
	assert.Contains(t, out, `@GetMapping("/users/{id}")`)
	assert.Contains(t, out, `@PathVariable("id") id: java.util.UUID,`)
	assert.Contains(t, out, `@RequestParam(value = "expand", required = false) expand: String?,`)
	assert.Contains(t, out, "): ResponseEntity<User>")
	assert.Contains(t, out, `@PostMapping("/users")`)
	assert.Contains(t, out, "@Valid @RequestBody body: CreateUserRequest,")
}

func TestRenderBuildFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasePackage = "com.acme.orders"

	out := renderBuildFile(cfg)
	assert.Contains(t, out, `group = "com.acme.orders"`)
	assert.Contains(t, out, "spring-boot-starter-web")
	assert.Contains(t, out, "spring-boot-starter-validation")
	assert.NotContains(t, out, "springdoc")

	cfg.IncludeValidation = false
	cfg.IncludeSwagger = true
	out = renderBuildFile(cfg)
	assert.NotContains(t, out, "spring-boot-starter-validation")
	assert.Contains(t, out, "springdoc")
}

func TestMappingAnnotation(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{method: "get", want: `@GetMapping("/x")`},
		{method: "post", want: `@PostMapping("/x")`},
		{method: "put", want: `@PutMapping("/x")`},
		{method: "patch", want: `@PatchMapping("/x")`},
		{method: "delete", want: `@DeleteMapping("/x")`},
		{method: "head", want: `@RequestMapping(method = [RequestMethod.HEAD], path = ["/x"])`},
	}

	for _, tt := range tests {
		got := mappingAnnotation(Method{HTTPMethod: tt.method, Path: "/x"})
		if got != tt.want {
			t.Errorf("mappingAnnotation(%s) = %s, want %s", tt.method, got, tt.want)
		}
	}
}

func TestKotlinTypeRendering(t *testing.T) {
	assert.Equal(t, "String", kotlinType(PropertyDecl{Type: "String"}))
	assert.Equal(t, "String? = null", kotlinType(PropertyDecl{Type: "String", Nullable: true}))
	assert.Equal(t, `String? = "x"`, kotlinType(PropertyDecl{Type: "String", Nullable: true, Default: `"x"`}))
	assert.Equal(t, "Int = 1", kotlinType(PropertyDecl{Type: "Int", Default: "1"}))
}

func TestRenderedKotlinHasNoTemplateResidue(t *testing.T) {
	out, err := renderClass(Class{Name: "X", Package: "p", Properties: []PropertyDecl{{Name: "a", Type: "String"}}})
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "{{"), "unrendered template directive in output:\n%s", out)
}
