package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openapikt/openapikt/document"
	"github.com/openapikt/openapikt/internal/memlimit"
	"github.com/openapikt/openapikt/kotlin"
	"github.com/openapikt/openapikt/resolve"
)

var (
	configFile string
	prettyLogs bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "openapikt",
	Short: "OpenAPI to Kotlin/Spring code generator",
}

var generateCmd = &cobra.Command{
	Use:   "generate [specs...]",
	Short: "Generate Kotlin sources from OpenAPI documents",
	Long: "Generate Kotlin data classes and Spring controller interfaces from " +
		"one or more OpenAPI 3.x documents. Spec arguments may be file paths " +
		"or doublestar globs such as 'api/**/*.yaml'.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file: %w", err)
			}
			logger.Debug().Str("file", viper.ConfigFileUsed()).Msg("loaded config file")
		}

		specs, err := expandSpecs(args)
		if err != nil {
			return err
		}

		threshold, err := parseThreshold(viper.GetString("memory-threshold"))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		totalFiles := 0
		for _, spec := range specs {
			specLogger := logger.With().Str("spec", spec).Logger()
			result, err := generateOne(ctx, spec, threshold, specLogger)
			if err != nil {
				return fmt.Errorf("%s: %w", spec, err)
			}
			totalFiles += len(result.Files)
		}

		logger.Info().
			Int("specs", len(specs)).
			Int("files", totalFiles).
			Dur("elapsed", time.Since(start)).
			Msg("done")
		return nil
	},
}

func generateOne(ctx context.Context, spec string, memoryThreshold int64, logger zerolog.Logger) (*kotlin.Result, error) {
	doc, err := document.Load(spec)
	if err != nil {
		return nil, err
	}

	opts := resolve.DefaultOptions()
	opts.Logger = logger
	opts.CacheEnabled = !viper.GetBool("no-cache")
	if size := viper.GetInt("cache-size"); size > 0 {
		opts.CacheMaxSize = size
	}
	opts.MemoryOptimization = viper.GetBool("memory-optimization")
	if memoryThreshold > 0 {
		opts.MemoryThresholdBytes = uint64(memoryThreshold)
	}
	opts.StreamingMode = viper.GetBool("streaming")
	if batch := viper.GetInt("batch-size"); batch > 0 {
		opts.BatchSize = batch
	}
	if workers := viper.GetInt("concurrency"); workers > 0 {
		opts.Concurrency = workers
	}
	opts.MetricsEnabled = viper.GetBool("metrics")

	engine := resolve.New(doc, opts)

	cfg := kotlin.DefaultConfig()
	cfg.Logger = logger
	cfg.OutputDir = viper.GetString("output")
	cfg.BasePackage = viper.GetString("package")
	cfg.GenerateModels = !viper.GetBool("no-models")
	cfg.GenerateControllers = !viper.GetBool("no-controllers")
	cfg.IncludeValidation = !viper.GetBool("no-validation")
	cfg.IncludeSwagger = viper.GetBool("swagger-annotations")

	result, err := kotlin.New(doc, engine, cfg).Generate(ctx)
	if err != nil {
		return nil, err
	}

	stats := engine.CacheStats()
	event := logger.Info().
		Int("files", len(result.Files)).
		Uint64("cache_hits", stats.Hits).
		Uint64("cache_misses", stats.Misses).
		Float64("cache_hit_rate", stats.HitRate)
	if opts.MemoryOptimization {
		mem := engine.MemoryStats()
		event = event.
			Float64("peak_memory_mb", mem.PeakUsageMB).
			Uint64("memory_cleanups", mem.CleanupCount)
	}
	event.Msg("generated")

	return result, nil
}

// expandSpecs resolves glob patterns and plain paths into a deduplicated
// spec list, preserving argument order.
func expandSpecs(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var specs []string
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		specs = append(specs, path)
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q matched no files", arg)
		}
		for _, match := range matches {
			add(match)
		}
	}
	return specs, nil
}

func parseThreshold(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	threshold, err := memlimit.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --memory-threshold: %w", err)
	}
	return threshold, nil
}

func newLogger() zerolog.Logger {
	var output io.Writer = os.Stderr
	if prettyLogs {
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	logger := zerolog.New(output).With().Timestamp().Logger()
	if !verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (YAML, JSON, or TOML)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Use pretty console logging instead of structured JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	flags := generateCmd.Flags()
	flags.StringP("output", "o", "generated", "Output directory for the generated project")
	flags.String("package", "com.example.api", "Base Kotlin package")
	flags.Bool("no-models", false, "Skip model generation")
	flags.Bool("no-controllers", false, "Skip controller generation")
	flags.Bool("no-validation", false, "Skip jakarta validation annotations")
	flags.Bool("swagger-annotations", false, "Emit swagger annotations on generated types")
	flags.Bool("no-cache", false, "Disable the schema resolution cache")
	flags.Int("cache-size", 0, "Maximum resolution cache entries (0 = default)")
	flags.Bool("memory-optimization", false, "Enable memory pressure monitoring and cleanup")
	flags.String("memory-threshold", "", "Memory pressure threshold, e.g. 512MiB (empty = auto-detect)")
	flags.Bool("streaming", false, "Resolve the schema catalog in bounded batches")
	flags.Int("batch-size", 0, "Schemas per streaming batch (0 = default)")
	flags.Int("concurrency", 0, "Concurrent schema resolutions (0 = default)")
	flags.Bool("metrics", false, "Collect prometheus metrics for the run")

	// Flags take precedence over OPENAPIKT_* environment variables, which
	// take precedence over the config file.
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("OPENAPIKT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("Command failed")
	}
}
