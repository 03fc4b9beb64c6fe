package kotlin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openapikt/openapikt/document"
)

// controllerFor builds one controller from the operations of a tag.
func (g *Generator) controllerFor(ctx context.Context, tag string, ops []document.Operation) (Controller, error) {
	controller := Controller{
		Name:    ClassName(tag) + "Controller",
		Package: g.cfg.BasePackage + ".controller",
	}

	for _, op := range ops {
		method, err := g.methodFor(ctx, op)
		if err != nil {
			return Controller{}, err
		}
		controller.Methods = append(controller.Methods, method)
	}

	controller.Imports = g.controllerImports(controller)
	return controller, nil
}

func (g *Generator) methodFor(ctx context.Context, op document.Operation) (Method, error) {
	method := Method{
		Name:        MethodName(op.OperationID(), op.Method, op.Path),
		HTTPMethod:  op.Method,
		Path:        op.Path,
		Summary:     op.Node.StringOf("summary"),
		Description: op.Node.StringOf("description"),
		ReturnType:  "Unit",
	}

	if g.cfg.IncludeSwagger && method.Summary != "" {
		method.Annotations = append(method.Annotations,
			fmt.Sprintf("@Operation(summary = %q)", method.Summary))
	}

	for _, paramNode := range op.Node.SequenceOf("parameters") {
		param, ok, err := g.parameterFor(ctx, paramNode)
		if err != nil {
			return Method{}, err
		}
		if ok {
			method.Parameters = append(method.Parameters, param)
		}
	}

	if body := op.Node.MappingOf("requestBody"); body != nil {
		bodyParam, err := g.requestBodyFor(ctx, body)
		if err != nil {
			return Method{}, err
		}
		method.RequestBody = bodyParam
	}

	returnType, err := g.returnTypeFor(ctx, op.Node.MappingOf("responses"))
	if err != nil {
		return Method{}, err
	}
	if returnType != "" {
		method.ReturnType = returnType
	}

	return method, nil
}

func (g *Generator) parameterFor(ctx context.Context, node *document.Node) (Parameter, bool, error) {
	if node == nil || node.Kind != document.KindMapping {
		return Parameter{}, false, nil
	}

	var kind ParamKind
	switch node.StringOf("in") {
	case "path":
		kind = ParamPath
	case "query":
		kind = ParamQuery
	case "header":
		kind = ParamHeader
	default:
		// Cookie parameters are not bound into generated controllers.
		return Parameter{}, false, nil
	}

	name := node.StringOf("name")
	required, _ := node.BoolOf("required")

	param := Parameter{
		Name:     PropertyName(name),
		WireName: name,
		Type:     "String",
		Kind:     kind,
		Required: required || kind == ParamPath,
	}

	if schemaNode, ok := node.Get("schema"); ok {
		schema, err := g.engine.ResolveNode(ctx, schemaNode)
		if err != nil {
			return Parameter{}, false, err
		}
		param.Type = g.mapper.TypeOf(schema)
		param.Validation = g.mapper.ValidationFor(schema, param.Required)
	}

	return param, true, nil
}

func (g *Generator) requestBodyFor(ctx context.Context, body *document.Node) (*Parameter, error) {
	schemaNode := jsonContentSchema(body)
	if schemaNode == nil {
		return nil, nil
	}

	schema, err := g.engine.ResolveNode(ctx, schemaNode)
	if err != nil {
		return nil, err
	}

	required, _ := body.BoolOf("required")
	return &Parameter{
		Name:       "body",
		Type:       g.mapper.TypeOf(schema),
		Kind:       ParamBody,
		Required:   required,
		Validation: g.mapper.ValidationFor(schema, required),
	}, nil
}

// returnTypeFor picks the first 2xx response with a JSON schema.
func (g *Generator) returnTypeFor(ctx context.Context, responses *document.Node) (string, error) {
	if responses == nil {
		return "", nil
	}

	codes := make([]string, 0, len(responses.Entries))
	for _, entry := range responses.Entries {
		codes = append(codes, entry.Key)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		response, _ := responses.Get(code)
		schemaNode := jsonContentSchema(response)
		if schemaNode == nil {
			continue
		}
		schema, err := g.engine.ResolveNode(ctx, schemaNode)
		if err != nil {
			return "", err
		}
		return g.mapper.TypeOf(schema), nil
	}

	return "", nil
}

// jsonContentSchema returns the schema node of the JSON media type, falling
// back to the first declared media type.
func jsonContentSchema(node *document.Node) *document.Node {
	if node == nil || node.Kind != document.KindMapping {
		return nil
	}
	content := node.MappingOf("content")
	if content == nil {
		return nil
	}

	if media := content.MappingOf("application/json"); media != nil {
		if schema, ok := media.Get("schema"); ok {
			return schema
		}
	}
	for _, entry := range content.Entries {
		if entry.Value == nil || entry.Value.Kind != document.KindMapping {
			continue
		}
		if schema, ok := entry.Value.Get("schema"); ok {
			return schema
		}
	}
	return nil
}

func (g *Generator) controllerImports(controller Controller) []string {
	seen := map[string]struct{}{
		"org.springframework.http.ResponseEntity":   {},
		"org.springframework.web.bind.annotation.*": {},
	}
	for _, method := range controller.Methods {
		if method.RequestBody != nil {
			seen["jakarta.validation.Valid"] = struct{}{}
			break
		}
	}
	for _, method := range controller.Methods {
		if len(method.Annotations) > 0 {
			seen["io.swagger.v3.oas.annotations.Operation"] = struct{}{}
			break
		}
	}

	imports := make([]string, 0, len(seen))
	for imp := range seen {
		imports = append(imports, imp)
	}
	sort.Strings(imports)
	return imports
}
