package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/hengadev/structio"
	"github.com/hengadev/structio/internal/codegen"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	switch command {
	case "generate":
		return generateCommand(args[1:], stdout, stderr)
	case "validate":
		return validateCommand(args[1:], stdout, stderr)
	case "init":
		return initCommand(args[1:], stdout, stderr)
	case "version":
		versionCommand(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: structio-gen <command> [options] [packages]\n")
	fmt.Fprintf(w, "\nCommands:\n")
	fmt.Fprintf(w, "  generate  Generate StructioFields methods for annotated structs\n")
	fmt.Fprintf(w, "  validate  Validate configuration and annotated structs\n")
	fmt.Fprintf(w, "  init      Initialize configuration file\n")
	fmt.Fprintf(w, "  version   Show version information\n")
	fmt.Fprintf(w, "\nRun 'structio-gen <command> -h' for help on a specific command.\n")
}

// loadConfigOrDefault reads path, falling back to the defaults when the file
// does not exist.
func loadConfigOrDefault(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func generateCommand(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("generate", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", DefaultConfigFile, "Path to configuration file")
	outputDir := flags.String("output", "", "Override output directory")
	verbose := flags.Bool("v", false, "Verbose output")
	dryRun := flags.Bool("dry-run", false, "Show what would be generated without writing files")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	packages := flags.Args()
	if len(packages) == 0 {
		packages = []string{"."}
	}

	config, err := loadConfigOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	generator, err := NewGenerator(config, *outputDir, *verbose, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Generation failed: %v\n", err)
		return 1
	}
	if _, err := generator.Generate(packages, *dryRun); err != nil {
		fmt.Fprintf(stderr, "Generation failed: %v\n", err)
		return 1
	}
	return 0
}

func validateCommand(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", DefaultConfigFile, "Path to configuration file")
	verbose := flags.Bool("v", false, "Verbose output")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	packages := flags.Args()
	if len(packages) == 0 {
		packages = []string{"."}
	}

	fmt.Fprintf(stdout, "Validating configuration at %s...\n", *configPath)
	config, err := loadConfigOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *verbose {
		fmt.Fprintln(stdout, "✓ Configuration file is valid")
	}

	hasErrors := false
	for _, pkg := range packages {
		if *verbose {
			fmt.Fprintf(stdout, "Validating package: %s\n", pkg)
		}

		structs, err := codegen.DiscoverStructs(pkg, &codegen.DiscoveryConfig{
			GeneratedSuffix: config.Generation.OutputSuffix,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to discover structs in %s: %v\n", pkg, err)
			hasErrors = true
			continue
		}

		if len(structs) == 0 {
			if *verbose {
				fmt.Fprintf(stdout, "  No annotated structs found in %s\n", pkg)
			}
			continue
		}

		fmt.Fprintf(stdout, "Found %d annotated structs in %s:\n", len(structs), pkg)
		for _, s := range structs {
			fmt.Fprintf(stdout, "  %s (%s)\n", s.StructName, s.SourceFile)
			if !s.IsValid {
				hasErrors = true
				for _, msg := range s.ValidationErrors {
					fmt.Fprintf(stdout, "    ✗ %s\n", msg)
				}
				continue
			}
			if *verbose {
				for _, f := range s.Listed() {
					fmt.Fprintf(stdout, "    ✓ %s.%s %s\n", s.StructName, f.Name, f.Type)
				}
			}
			fmt.Fprintf(stdout, "    ✓ %d fields listed\n", len(s.Listed()))
		}
	}

	if hasErrors {
		fmt.Fprintf(stderr, "\nValidation failed with errors.\n")
		return 1
	}

	fmt.Fprintln(stdout, "\n✓ All validations passed!")
	return 0
}

func initCommand(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	flags.SetOutput(stderr)
	force := flags.Bool("force", false, "Overwrite existing configuration file")
	configPath := flags.String("config", DefaultConfigFile, "Path of the configuration file to create")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if !*force {
		if _, err := os.Stat(*configPath); err == nil {
			fmt.Fprintf(stderr, "Configuration file %s already exists. Use -force to overwrite.\n", *configPath)
			return 1
		}
	}

	fmt.Fprintf(stdout, "Creating configuration file at %s...\n", *configPath)
	if err := SaveConfig(DefaultConfig(), *configPath); err != nil {
		fmt.Fprintf(stderr, "Failed to create config file: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Configuration file created!")
	return 0
}

func versionCommand(w io.Writer) {
	fmt.Fprintf(w, "structio-gen: %s\n", structio.VersionInfo())
	fmt.Fprintln(w, "Generates StructioFields methods for structs marked //structio:fields")
}
