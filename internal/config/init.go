package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/temirov/reposum/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	defaultConfigurationTemplate = `summarize:
  format: json
  output_dir: summaries
  timestamp: false
  clipboard: false
  concurrency: 1
  tokens:
    enabled: false
    model: gpt-4o
  paths:
    exclude: []
    use_gitignore: true
    use_ignore: true
  thresholds:
    folder_words: 20000
    file_words: 20000
    chunk_size: 4000
    chunk_context: 100
    reduce_chunk_summaries: false
tree:
  format: raw
  paths:
    exclude: []
    use_gitignore: true
    use_ignore: true
summarizer:
  provider: mistral
  model: mistral-large-latest
  request_timeout: 0s
  cache:
    enabled: true
exclusions:
  directories: []
  files: []
  extensions: []
`)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
	HomeDirectory    string
	FileSystem       afero.Fs
}

// DefaultConfigurationTemplate returns the YAML written by InitializeConfiguration.
func DefaultConfigurationTemplate() string {
	return defaultConfigurationTemplate
}

// InitializeConfiguration writes the default configuration to the requested target.
func InitializeConfiguration(options InitOptions) (string, error) {
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		destinationPath = filepath.Join(workingDirectory, utils.ConfigFileName)
	case InitTargetGlobal:
		homeDirectory := options.HomeDirectory
		if homeDirectory == "" {
			resolvedHome, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory for configuration: %w", err)
			}
			homeDirectory = resolvedHome
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := fileSystem.MkdirAll(configurationDirectory, 0o755); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
		destinationPath = filepath.Join(configurationDirectory, utils.ConfigFileName)
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	exists, existsErr := afero.Exists(fileSystem, destinationPath)
	if existsErr != nil {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, existsErr)
	}
	if exists && !options.Force {
		return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
	}

	if err := afero.WriteFile(fileSystem, destinationPath, []byte(defaultConfigurationTemplate), 0o600); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}
