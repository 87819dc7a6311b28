package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultFormat           = "json"
	defaultTreeFormat       = "raw"
	defaultOutputDirectory  = "summaries"
	defaultConcurrency      = 1
	defaultProvider         = "mistral"
	defaultTokenModel       = "gpt-4o"
	defaultFolderWords      = 20000
	defaultFileWords        = 20000
	defaultChunkSize        = 4000
	defaultChunkContext     = 100
	errorRequestTimeoutFmt  = "parse summarizer.request_timeout %q: %w"
	validationFailureFormat = "invalid %s setting %s: rule '%s' (value: '%v')"
)

var settingsValidator = validator.New()

// SummarizeSettings is the fully resolved configuration of one summarize run.
type SummarizeSettings struct {
	Mode            string `validate:"omitempty,oneof=local repo"`
	Format          string `validate:"required,oneof=raw json xml"`
	OutputDirectory string `validate:"required"`
	Timestamp       bool
	Clipboard       bool
	Concurrency     int `validate:"min=1,max=64"`

	TokensEnabled bool
	TokenModel    string `validate:"required_if=TokensEnabled true"`

	ExclusionPatterns []string
	UseGitignore      bool
	UseIgnoreFile     bool

	FolderWordThreshold  int `validate:"min=1"`
	FileWordThreshold    int `validate:"min=1"`
	ChunkSize            int `validate:"min=1"`
	ChunkContext         int `validate:"min=0"`
	ReduceChunkSummaries bool

	Provider       string `validate:"required,oneof=mistral openai ollama anthropic gemini"`
	Model          string
	BaseURL        string `validate:"omitempty,url"`
	APIKeyEnv      string
	RequestTimeout time.Duration `validate:"min=0"`
	CacheEnabled   bool
	CachePath      string

	Exclusions ExclusionConfiguration
}

// TreeSettings is the fully resolved configuration of one tree run.
type TreeSettings struct {
	Format            string `validate:"required,oneof=raw json xml"`
	ExclusionPatterns []string
	UseGitignore      bool
	UseIgnoreFile     bool
	Exclusions        ExclusionConfiguration
}

// DefaultSummarizeSettings returns the settings used when no configuration or flag overrides them.
func DefaultSummarizeSettings() SummarizeSettings {
	return SummarizeSettings{
		Format:              defaultFormat,
		OutputDirectory:     defaultOutputDirectory,
		Concurrency:         defaultConcurrency,
		TokenModel:          defaultTokenModel,
		UseGitignore:        true,
		UseIgnoreFile:       true,
		FolderWordThreshold: defaultFolderWords,
		FileWordThreshold:   defaultFileWords,
		ChunkSize:           defaultChunkSize,
		ChunkContext:        defaultChunkContext,
		Provider:            defaultProvider,
		CacheEnabled:        true,
	}
}

// DefaultTreeSettings returns the settings used by the tree command without overrides.
func DefaultTreeSettings() TreeSettings {
	return TreeSettings{Format: defaultTreeFormat, UseGitignore: true, UseIgnoreFile: true}
}

// ResolveSummarizeSettings overlays the loaded configuration onto the defaults.
func ResolveSummarizeSettings(configuration ApplicationConfiguration) (SummarizeSettings, error) {
	settings := DefaultSummarizeSettings()
	summarize := configuration.Summarize
	if summarize.Mode != "" {
		settings.Mode = strings.ToLower(summarize.Mode)
	}
	if summarize.Format != "" {
		settings.Format = strings.ToLower(summarize.Format)
	}
	if summarize.OutputDirectory != "" {
		settings.OutputDirectory = summarize.OutputDirectory
	}
	if summarize.Timestamp != nil {
		settings.Timestamp = *summarize.Timestamp
	}
	if summarize.Clipboard != nil {
		settings.Clipboard = *summarize.Clipboard
	}
	if summarize.Concurrency != nil {
		settings.Concurrency = *summarize.Concurrency
	}
	if summarize.Tokens.Enabled != nil {
		settings.TokensEnabled = *summarize.Tokens.Enabled
	}
	if summarize.Tokens.Model != "" {
		settings.TokenModel = summarize.Tokens.Model
	}
	settings.ExclusionPatterns = append([]string{}, summarize.Paths.Exclude...)
	if summarize.Paths.UseGitignore != nil {
		settings.UseGitignore = *summarize.Paths.UseGitignore
	}
	if summarize.Paths.UseIgnoreFile != nil {
		settings.UseIgnoreFile = *summarize.Paths.UseIgnoreFile
	}

	thresholds := summarize.Thresholds
	if thresholds.FolderWords != nil {
		settings.FolderWordThreshold = *thresholds.FolderWords
	}
	if thresholds.FileWords != nil {
		settings.FileWordThreshold = *thresholds.FileWords
	}
	if thresholds.ChunkSize != nil {
		settings.ChunkSize = *thresholds.ChunkSize
	}
	if thresholds.ChunkContext != nil {
		settings.ChunkContext = *thresholds.ChunkContext
	}
	if thresholds.ReduceChunkSummaries != nil {
		settings.ReduceChunkSummaries = *thresholds.ReduceChunkSummaries
	}

	summarizer := configuration.Summarizer
	if summarizer.Provider != "" {
		settings.Provider = strings.ToLower(summarizer.Provider)
	}
	settings.Model = summarizer.Model
	settings.BaseURL = summarizer.BaseURL
	settings.APIKeyEnv = summarizer.APIKeyEnv
	if summarizer.RequestTimeout != "" {
		timeout, parseError := time.ParseDuration(summarizer.RequestTimeout)
		if parseError != nil {
			return SummarizeSettings{}, fmt.Errorf(errorRequestTimeoutFmt, summarizer.RequestTimeout, parseError)
		}
		settings.RequestTimeout = timeout
	}
	if summarizer.Cache.Enabled != nil {
		settings.CacheEnabled = *summarizer.Cache.Enabled
	}
	settings.CachePath = summarizer.Cache.Path
	settings.Exclusions = configuration.Exclusions
	return settings, nil
}

// ResolveTreeSettings overlays the loaded configuration onto the tree defaults.
func ResolveTreeSettings(configuration ApplicationConfiguration) TreeSettings {
	settings := DefaultTreeSettings()
	if configuration.Tree.Format != "" {
		settings.Format = strings.ToLower(configuration.Tree.Format)
	}
	settings.ExclusionPatterns = append([]string{}, configuration.Tree.Paths.Exclude...)
	if configuration.Tree.Paths.UseGitignore != nil {
		settings.UseGitignore = *configuration.Tree.Paths.UseGitignore
	}
	if configuration.Tree.Paths.UseIgnoreFile != nil {
		settings.UseIgnoreFile = *configuration.Tree.Paths.UseIgnoreFile
	}
	settings.Exclusions = configuration.Exclusions
	return settings
}

// Validate checks the resolved summarize settings.
func (settings SummarizeSettings) Validate() error {
	return validateSettings("summarize", settings)
}

// Validate checks the resolved tree settings.
func (settings TreeSettings) Validate() error {
	return validateSettings("tree", settings)
}

func validateSettings(commandName string, settings any) error {
	validationError := settingsValidator.Struct(settings)
	if validationError == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(validationError, &validationErrors) {
		return validationError
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, fmt.Sprintf(validationFailureFormat, commandName, fieldError.Field(), fieldError.Tag(), fieldError.Value()))
	}
	return errors.New(strings.Join(messages, "; "))
}
