package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hengadev/errsx"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/hengadev/structio"
	"github.com/hengadev/structio/internal/codegen"
)

// Generator handles the code generation process
type Generator struct {
	config    *Config
	outputDir string
	verbose   bool
	out       io.Writer
	engine    *codegen.TemplateEngine
}

// GenerationCache tracks what has been generated for one package
type GenerationCache struct {
	ConfigHash       string                       `yaml:"config_hash"`
	GeneratorVersion string                       `yaml:"generator_version"`
	Files            map[string]GeneratedFileInfo `yaml:"files"`
}

// GeneratedFileInfo tracks information about a generated file
type GeneratedFileInfo struct {
	SourceHash    string    `yaml:"source_hash"`
	Output        string    `yaml:"output"`
	GeneratedTime time.Time `yaml:"generated_time"`
}

// Summary lists the files a run wrote, or would write in dry-run mode, and
// the source files left alone because they did not change.
type Summary struct {
	Generated []string
	Skipped   []string
}

// NewGenerator creates a new Generator writing progress to out
func NewGenerator(config *Config, outputDir string, verbose bool, out io.Writer) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	engine, err := codegen.NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create template engine: %w", err)
	}

	return &Generator{
		config:    config,
		outputDir: outputDir,
		verbose:   verbose,
		out:       out,
		engine:    engine,
	}, nil
}

// Generate performs code generation for the specified packages
func (g *Generator) Generate(packages []string, dryRun bool) (*Summary, error) {
	g.logf("Starting code generation for packages: %v\n", packages)
	if dryRun {
		g.logf("Running in dry-run mode\n")
	}

	summary := &Summary{}
	for _, packagePath := range packages {
		pkgConfig := g.config.Packages[packagePath]
		if pkgConfig.Skip {
			g.logf("Skipping package %s (marked as skip)\n", packagePath)
			continue
		}
		if err := g.generatePackage(packagePath, pkgConfig, dryRun, summary); err != nil {
			return summary, err
		}
	}

	fmt.Fprintf(g.out, "Code generation complete: %d generated, %d unchanged\n", len(summary.Generated), len(summary.Skipped))
	return summary, nil
}

func (g *Generator) generatePackage(packagePath string, pkgConfig PackageConfig, dryRun bool, summary *Summary) error {
	g.logf("Processing package: %s\n", packagePath)

	structs, err := codegen.DiscoverStructs(packagePath, &codegen.DiscoveryConfig{
		GeneratedSuffix: g.config.Generation.OutputSuffix,
	})
	if err != nil {
		return fmt.Errorf("failed to discover structs in package %s: %w", packagePath, err)
	}
	g.logf("Found %d annotated structs in %s\n", len(structs), packagePath)

	var invalid errsx.Map
	for _, s := range structs {
		for i, err := range codegen.Errors(s) {
			invalid.Set(fmt.Sprintf("%s:%s#%d", s.SourceFile, s.StructName, i), err)
		}
	}
	if !invalid.IsEmpty() {
		return fmt.Errorf("invalid structs in package %s: %w", packagePath, invalid.AsError())
	}

	outputDir := packagePath
	if pkgConfig.OutputDir != "" {
		outputDir = pkgConfig.OutputDir
	}
	if g.outputDir != "" {
		outputDir = g.outputDir
	}

	cachePath := g.cachePath(packagePath)
	cache := loadCache(cachePath)
	configHash, err := g.configHash()
	if err != nil {
		return err
	}
	if cache.ConfigHash != configHash || cache.GeneratorVersion != structio.Version {
		cache = &GenerationCache{Files: make(map[string]GeneratedFileInfo)}
	}
	cache.ConfigHash = configHash
	cache.GeneratorVersion = structio.Version

	for _, group := range groupByFile(structs) {
		sourceFile := group[0].SourceFile
		sourceHash, err := hashFile(filepath.Join(packagePath, sourceFile))
		if err != nil {
			return err
		}
		outputPath := filepath.Join(outputDir, codegen.OutputFileName(sourceFile, g.config.Generation.OutputSuffix))

		if entry, ok := cache.Files[sourceFile]; ok && entry.SourceHash == sourceHash && entry.Output == outputPath && fileExists(outputPath) {
			g.logf("Unchanged: %s\n", sourceFile)
			summary.Skipped = append(summary.Skipped, sourceFile)
			continue
		}

		data := codegen.BuildTemplateData(group, codegen.GenerationConfig{
			OutputSuffix:     g.config.Generation.OutputSuffix,
			GeneratorVersion: structio.Version,
		})
		code, err := g.engine.GenerateCode(data)
		if err != nil {
			return fmt.Errorf("failed to generate code for %s: %w", sourceFile, err)
		}

		summary.Generated = append(summary.Generated, outputPath)
		if dryRun {
			fmt.Fprintf(g.out, "Would generate: %s\n", outputPath)
			g.logf("Generated code:\n%s\n", code)
			continue
		}

		if err := os.WriteFile(outputPath, code, 0644); err != nil {
			return fmt.Errorf("failed to write generated file %s: %w", outputPath, err)
		}
		g.logf("Generated: %s\n", outputPath)

		cache.Files[sourceFile] = GeneratedFileInfo{
			SourceHash:    sourceHash,
			Output:        outputPath,
			GeneratedTime: time.Now().UTC(),
		}
	}

	if dryRun || cachePath == "" {
		return nil
	}
	return saveCache(cachePath, cache)
}

func (g *Generator) logf(format string, args ...any) {
	if g.verbose {
		fmt.Fprintf(g.out, format, args...)
	}
}

func (g *Generator) cachePath(packagePath string) string {
	path := g.config.Generation.CacheFile
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(packagePath, path)
}

// configHash fingerprints the settings that change generated output
func (g *Generator) configHash() (string, error) {
	data, err := yaml.Marshal(g.config.Generation)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// groupByFile splits structs into runs sharing a source file, keeping the
// discovery order.
func groupByFile(structs []codegen.StructInfo) [][]codegen.StructInfo {
	var groups [][]codegen.StructInfo
	index := make(map[string]int)
	for _, s := range structs {
		i, ok := index[s.SourceFile]
		if !ok {
			i = len(groups)
			index[s.SourceFile] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// loadCache reads the cache at path. A missing or unreadable cache is empty.
func loadCache(path string) *GenerationCache {
	cache := &GenerationCache{Files: make(map[string]GeneratedFileInfo)}
	if path == "" {
		return cache
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cache
	}
	if err := yaml.Unmarshal(data, cache); err != nil || cache.Files == nil {
		return &GenerationCache{Files: make(map[string]GeneratedFileInfo)}
	}
	return cache
}

func saveCache(path string, cache *GenerationCache) error {
	data, err := yaml.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
