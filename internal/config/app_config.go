package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/reposum/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// HomeDirectory overrides the user home holding the global configuration.
	HomeDirectory string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Summarize  SummarizeConfiguration  `mapstructure:"summarize"`
	Tree       TreeConfiguration       `mapstructure:"tree"`
	Summarizer SummarizerConfiguration `mapstructure:"summarizer"`
	Exclusions ExclusionConfiguration  `mapstructure:"exclusions"`
}

// SummarizeConfiguration defines options of the summarize command.
type SummarizeConfiguration struct {
	Mode            string                 `mapstructure:"mode"`
	Format          string                 `mapstructure:"format"`
	OutputDirectory string                 `mapstructure:"output_dir"`
	Timestamp       *bool                  `mapstructure:"timestamp"`
	Clipboard       *bool                  `mapstructure:"clipboard"`
	Concurrency     *int                   `mapstructure:"concurrency"`
	Tokens          TokenConfiguration     `mapstructure:"tokens"`
	Paths           PathConfiguration      `mapstructure:"paths"`
	Thresholds      ThresholdConfiguration `mapstructure:"thresholds"`
}

// TreeConfiguration defines options of the tree command.
type TreeConfiguration struct {
	Format string            `mapstructure:"format"`
	Paths  PathConfiguration `mapstructure:"paths"`
}

// TokenConfiguration controls token metering defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// PathConfiguration configures inclusion and exclusion rules for path traversal.
type PathConfiguration struct {
	Exclude       []string `mapstructure:"exclude"`
	UseGitignore  *bool    `mapstructure:"use_gitignore"`
	UseIgnoreFile *bool    `mapstructure:"use_ignore"`
}

// ThresholdConfiguration tunes the aggregation size limits.
type ThresholdConfiguration struct {
	FolderWords          *int  `mapstructure:"folder_words"`
	FileWords            *int  `mapstructure:"file_words"`
	ChunkSize            *int  `mapstructure:"chunk_size"`
	ChunkContext         *int  `mapstructure:"chunk_context"`
	ReduceChunkSummaries *bool `mapstructure:"reduce_chunk_summaries"`
}

// SummarizerConfiguration selects and tunes the summarization backend.
type SummarizerConfiguration struct {
	Provider       string             `mapstructure:"provider"`
	Model          string             `mapstructure:"model"`
	BaseURL        string             `mapstructure:"base_url"`
	APIKeyEnv      string             `mapstructure:"api_key_env"`
	RequestTimeout string             `mapstructure:"request_timeout"`
	Cache          CacheConfiguration `mapstructure:"cache"`
}

// CacheConfiguration controls the persistent summary cache.
type CacheConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ExclusionConfiguration appends entries to the built-in denylists.
type ExclusionConfiguration struct {
	Directories []string `mapstructure:"directories"`
	Files       []string `mapstructure:"files"`
	Extensions  []string `mapstructure:"extensions"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	homeDirectory := options.HomeDirectory
	if homeDirectory == "" {
		if resolvedHome, err := os.UserHomeDir(); err == nil {
			homeDirectory = resolvedHome
		}
	}
	if homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Summarize.Paths.Exclude = utils.DeduplicatePatterns(merged.Summarize.Paths.Exclude)
	merged.Tree.Paths.Exclude = utils.DeduplicatePatterns(merged.Tree.Paths.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Summarize = result.Summarize.merge(override.Summarize)
	result.Tree = result.Tree.merge(override.Tree)
	result.Summarizer = result.Summarizer.merge(override.Summarizer)
	result.Exclusions = result.Exclusions.merge(override.Exclusions)
	return result
}

func (config SummarizeConfiguration) merge(override SummarizeConfiguration) SummarizeConfiguration {
	result := config
	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.OutputDirectory != "" {
		result.OutputDirectory = override.OutputDirectory
	}
	if override.Timestamp != nil {
		result.Timestamp = cloneBool(override.Timestamp)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.Concurrency != nil {
		result.Concurrency = cloneInt(override.Concurrency)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	result.Paths = result.Paths.merge(override.Paths)
	result.Thresholds = result.Thresholds.merge(override.Thresholds)
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	result.Paths = result.Paths.merge(override.Paths)
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	return result
}

func (config ThresholdConfiguration) merge(override ThresholdConfiguration) ThresholdConfiguration {
	result := config
	if override.FolderWords != nil {
		result.FolderWords = cloneInt(override.FolderWords)
	}
	if override.FileWords != nil {
		result.FileWords = cloneInt(override.FileWords)
	}
	if override.ChunkSize != nil {
		result.ChunkSize = cloneInt(override.ChunkSize)
	}
	if override.ChunkContext != nil {
		result.ChunkContext = cloneInt(override.ChunkContext)
	}
	if override.ReduceChunkSummaries != nil {
		result.ReduceChunkSummaries = cloneBool(override.ReduceChunkSummaries)
	}
	return result
}

func (config SummarizerConfiguration) merge(override SummarizerConfiguration) SummarizerConfiguration {
	result := config
	if override.Provider != "" {
		result.Provider = override.Provider
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.BaseURL != "" {
		result.BaseURL = override.BaseURL
	}
	if override.APIKeyEnv != "" {
		result.APIKeyEnv = override.APIKeyEnv
	}
	if override.RequestTimeout != "" {
		result.RequestTimeout = override.RequestTimeout
	}
	if override.Cache.Enabled != nil {
		result.Cache.Enabled = cloneBool(override.Cache.Enabled)
	}
	if override.Cache.Path != "" {
		result.Cache.Path = override.Cache.Path
	}
	return result
}

// Exclusions accumulate across sources instead of replacing each other.
func (config ExclusionConfiguration) merge(override ExclusionConfiguration) ExclusionConfiguration {
	return ExclusionConfiguration{
		Directories: utils.DeduplicatePatterns(append(append([]string{}, config.Directories...), override.Directories...)),
		Files:       utils.DeduplicatePatterns(append(append([]string{}, config.Files...), override.Files...)),
		Extensions:  utils.DeduplicatePatterns(append(append([]string{}, config.Extensions...), override.Extensions...)),
	}
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
