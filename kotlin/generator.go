// Package kotlin renders resolved OpenAPI schemas and operations as a
// Kotlin/Spring project: Jackson-annotated data classes, enum classes,
// sealed class hierarchies for discriminated unions, and Spring controller
// interfaces grouped by tag.
package kotlin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/openapikt/openapikt/document"
	"github.com/openapikt/openapikt/resolve"
)

// Config controls what the generator emits and where.
type Config struct {
	// OutputDir is the root of the generated project.
	OutputDir string
	// BasePackage is the Kotlin package prefix, e.g. "com.example.api".
	BasePackage string

	GenerateModels      bool
	GenerateControllers bool
	IncludeValidation   bool
	IncludeSwagger      bool

	Logger zerolog.Logger
}

// DefaultConfig returns the default generator configuration.
func DefaultConfig() Config {
	return Config{
		OutputDir:           "generated",
		BasePackage:         "com.example.api",
		GenerateModels:      true,
		GenerateControllers: true,
		IncludeValidation:   true,
		Logger:              zerolog.Nop(),
	}
}

// Result summarizes one generator run.
type Result struct {
	OutputDir string
	// Files lists the written files relative to OutputDir.
	Files []string
}

// Generator turns a resolved document into Kotlin sources on disk.
type Generator struct {
	cfg    Config
	doc    *document.Document
	engine *resolve.Engine
	mapper *mapper
	logger zerolog.Logger
}

// New creates a generator over an already-constructed resolution engine.
func New(doc *document.Document, engine *resolve.Engine, cfg Config) *Generator {
	return &Generator{
		cfg:    cfg,
		doc:    doc,
		engine: engine,
		mapper: &mapper{cfg: cfg},
		logger: cfg.Logger.With().Str("component", "kotlin").Logger(),
	}
}

// Generate resolves the document's schema catalog and writes the project.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	catalog, err := g.engine.BuildCatalog(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{OutputDir: g.cfg.OutputDir}

	if g.cfg.GenerateModels {
		if err := g.generateModels(catalog, result); err != nil {
			return nil, err
		}
	}
	if g.cfg.GenerateControllers {
		if err := g.generateControllers(ctx, result); err != nil {
			return nil, err
		}
	}
	if err := g.writeFile(result, "build.gradle.kts", renderBuildFile(g.cfg)); err != nil {
		return nil, err
	}

	g.logger.Info().
		Int("files", len(result.Files)).
		Str("output", result.OutputDir).
		Msg("generation complete")
	return result, nil
}

func (g *Generator) generateModels(catalog *resolve.Catalog, result *Result) error {
	dir := g.sourceDir("model")
	absorbed := sealedSubtypeNames(catalog)
	for _, named := range catalog.Schemas {
		if _, sub := absorbed[ClassName(named.Name)]; sub {
			// Declared inside its sealed parent's file; a standalone class
			// would collide with it.
			continue
		}
		class, ok := g.mapper.ClassFor(named.Name, named.Schema)
		if !ok {
			g.logger.Debug().Str("schema", named.Name).Msg("no class emitted")
			continue
		}

		content, err := renderClass(class)
		if err != nil {
			return fmt.Errorf("render model %s: %w", class.Name, err)
		}
		if err := g.writeFile(result, filepath.Join(dir, class.Name+".kt"), content); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateControllers(ctx context.Context, result *Result) error {
	dir := g.sourceDir("controller")
	tags, byTag := g.doc.OperationsByTag()
	for _, tag := range tags {
		controller, err := g.controllerFor(ctx, tag, byTag[tag])
		if err != nil {
			return fmt.Errorf("controller for tag %q: %w", tag, err)
		}

		content, err := renderController(controller)
		if err != nil {
			return fmt.Errorf("render controller %s: %w", controller.Name, err)
		}
		if err := g.writeFile(result, filepath.Join(dir, controller.Name+".kt"), content); err != nil {
			return err
		}
	}
	return nil
}

// sealedSubtypeNames collects the class names of every discriminated union
// variant. Those classes live in the union's file.
func sealedSubtypeNames(catalog *resolve.Catalog) map[string]struct{} {
	names := make(map[string]struct{})
	for _, named := range catalog.Schemas {
		s := named.Schema
		if s.Kind != resolve.KindUnion || s.Discriminator == nil {
			continue
		}
		for _, variant := range s.Variants {
			if variant.SourceName != "" {
				names[ClassName(variant.SourceName)] = struct{}{}
			}
		}
	}
	return names
}

func (g *Generator) sourceDir(sub string) string {
	return filepath.Join("src", "main", "kotlin", PackagePath(g.cfg.BasePackage), sub)
}

func (g *Generator) writeFile(result *Result, rel, content string) error {
	path := filepath.Join(g.cfg.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	result.Files = append(result.Files, rel)
	g.logger.Debug().Str("file", rel).Msg("wrote file")
	return nil
}
