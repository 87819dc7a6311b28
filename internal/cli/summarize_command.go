package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposum/internal/aggregator"
	"github.com/temirov/reposum/internal/commands"
	"github.com/temirov/reposum/internal/config"
	"github.com/temirov/reposum/internal/content"
	"github.com/temirov/reposum/internal/exclusion"
	"github.com/temirov/reposum/internal/output"
	"github.com/temirov/reposum/internal/repository"
	"github.com/temirov/reposum/internal/summarizer"
	"github.com/temirov/reposum/internal/tokenizer"
	"github.com/temirov/reposum/internal/utils"
)

const (
	summarizeUse              = "summarize [path_or_url]"
	summarizeAlias            = "s"
	summarizeShortDescription = "summarize a folder or repository (" + summarizeAlias + ")"

	// summarizeLongDescription provides detailed help for the summarize command.
	summarizeLongDescription = `Summarize a local folder or a git repository bottom-up.
The global summary is printed and saved together with the per-folder summaries.
Use --mode to force local or repo acquisition, and --format to choose the per-folder file format.`
	// summarizeUsageExample demonstrates summarize command usage.
	summarizeUsageExample = `  # Summarize the current folder with the default Mistral backend
  reposum summarize .

  # Summarize a GitHub repository with OpenAI and keep timestamped artifacts
  reposum summarize https://github.com/user/project.git --provider openai --timestamp

  # Use a local Ollama server and four concurrent requests
  reposum summarize ./service --provider ollama --model llama3.1 --concurrency 4`

	modeFlagName              = "mode"
	outputDirectoryFlagName   = "output-dir"
	timestampFlagName         = "timestamp"
	clipboardFlagName         = "clipboard"
	concurrencyFlagName       = "concurrency"
	tokensFlagName            = "tokens"
	tokenModelFlagName        = "token-model"
	providerFlagName          = "provider"
	modelFlagName             = "model"
	baseURLFlagName           = "base-url"
	apiKeyEnvFlagName         = "api-key-env"
	requestTimeoutFlagName    = "request-timeout"
	noCacheFlagName           = "no-cache"
	reduceChunksFlagName      = "reduce-chunks"
	modeFlagDescription       = "acquisition mode (local or repo); inferred when omitted"
	outputDirFlagDescription  = "directory receiving the summary artifacts"
	timestampFlagDescription  = "embed a timestamp in artifact names"
	clipboardFlagDescription  = "copy the global summary to the clipboard"
	concurrencyDescription    = "maximum concurrent summarizer requests"
	tokensFlagDescription     = "count tokens sent to the summarizer"
	tokenModelFlagDescription = "tokenizer model used for token counting"
	providerFlagDescription   = "summarizer provider (mistral, openai, ollama, anthropic, gemini)"
	modelFlagDescription      = "summarizer model"
	baseURLFlagDescription    = "summarizer API base URL"
	apiKeyEnvFlagDescription  = "environment variable holding the summarizer API key"
	requestTimeoutDescription = "deadline of one summarizer request (0 disables)"
	noCacheFlagDescription    = "do not read or write the summary cache"
	reduceChunksDescription   = "reduce chunk summaries of very large files until they fit the word threshold"

	errorLoadEnvironmentFormat = "load %s: %w"
	errorTokenizerFormat       = "initialize tokenizer: %w"
	errorSummarizerFormat      = "initialize summarizer: %w"
	errorIgnoreSpecFormat      = "load ignore patterns: %w"

	logMessageSummaryUsage     = "summarizer usage"
	logMessageCloseSource      = "failed to remove temporary repository"
	logMessageCloseCache       = "failed to close summary cache"
	logMessageClipboardFailure = "failed to copy summary to clipboard"
	logMessageArtifactsSaved   = "summary artifacts saved"
	logMessageIgnorePatterns   = "ignore patterns"

	artifactPatternSeparator = "/"
)

type summarizeOptions struct {
	paths                pathOptions
	mode                 string
	format               string
	outputDirectory      string
	timestamp            bool
	clipboard            bool
	concurrency          int
	tokensEnabled        bool
	tokenModel           string
	provider             string
	model                string
	baseURL              string
	apiKeyEnv            string
	requestTimeout       time.Duration
	disableCache         bool
	reduceChunkSummaries bool
}

// createSummarizeCommand returns the summarize subcommand.
func (app *application) createSummarizeCommand() *cobra.Command {
	var options summarizeOptions

	summarizeCommand := &cobra.Command{
		Use:     summarizeUse,
		Aliases: []string{summarizeAlias},
		Short:   summarizeShortDescription,
		Long:    summarizeLongDescription,
		Example: summarizeUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			pathOrURL := defaultPath
			if len(arguments) == 1 {
				pathOrURL = arguments[0]
			}
			settings, settingsError := app.resolveSummarizeSettings(command, options)
			if settingsError != nil {
				return settingsError
			}
			return app.runSummarize(command.Context(), pathOrURL, settings)
		},
	}

	flags := summarizeCommand.Flags()
	addPathFlags(summarizeCommand, &options.paths)
	flags.StringVar(&options.mode, modeFlagName, "", modeFlagDescription)
	flags.StringVar(&options.format, formatFlagName, "", formatFlagDescription)
	flags.StringVar(&options.outputDirectory, outputDirectoryFlagName, "", outputDirFlagDescription)
	registerBooleanFlag(flags, &options.timestamp, timestampFlagName, false, timestampFlagDescription)
	registerBooleanFlag(flags, &options.clipboard, clipboardFlagName, false, clipboardFlagDescription)
	flags.IntVar(&options.concurrency, concurrencyFlagName, aggregator.DefaultConcurrency, concurrencyDescription)
	registerBooleanFlag(flags, &options.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	flags.StringVar(&options.tokenModel, tokenModelFlagName, "", tokenModelFlagDescription)
	flags.StringVar(&options.provider, providerFlagName, "", providerFlagDescription)
	flags.StringVar(&options.model, modelFlagName, "", modelFlagDescription)
	flags.StringVar(&options.baseURL, baseURLFlagName, "", baseURLFlagDescription)
	flags.StringVar(&options.apiKeyEnv, apiKeyEnvFlagName, "", apiKeyEnvFlagDescription)
	flags.DurationVar(&options.requestTimeout, requestTimeoutFlagName, 0, requestTimeoutDescription)
	registerBooleanFlag(flags, &options.disableCache, noCacheFlagName, false, noCacheFlagDescription)
	registerBooleanFlag(flags, &options.reduceChunkSummaries, reduceChunksFlagName, false, reduceChunksDescription)
	return summarizeCommand
}

// resolveSummarizeSettings layers defaults, configuration files, and explicitly set flags.
func (app *application) resolveSummarizeSettings(command *cobra.Command, options summarizeOptions) (config.SummarizeSettings, error) {
	configuration, loadError := app.loadConfiguration()
	if loadError != nil {
		return config.SummarizeSettings{}, loadError
	}
	settings, resolveError := config.ResolveSummarizeSettings(configuration)
	if resolveError != nil {
		return config.SummarizeSettings{}, resolveError
	}

	changed := command.Flags().Changed
	if changed(modeFlagName) {
		settings.Mode = strings.ToLower(options.mode)
	}
	if changed(formatFlagName) {
		settings.Format = strings.ToLower(options.format)
	}
	if changed(outputDirectoryFlagName) {
		settings.OutputDirectory = options.outputDirectory
	}
	if changed(timestampFlagName) {
		settings.Timestamp = options.timestamp
	}
	if changed(clipboardFlagName) {
		settings.Clipboard = options.clipboard
	}
	if changed(concurrencyFlagName) {
		settings.Concurrency = options.concurrency
	}
	if changed(tokensFlagName) {
		settings.TokensEnabled = options.tokensEnabled
	}
	if changed(tokenModelFlagName) {
		settings.TokenModel = options.tokenModel
	}
	if changed(providerFlagName) {
		settings.Provider = strings.ToLower(options.provider)
	}
	if changed(modelFlagName) {
		settings.Model = options.model
	}
	if changed(baseURLFlagName) {
		settings.BaseURL = options.baseURL
	}
	if changed(apiKeyEnvFlagName) {
		settings.APIKeyEnv = options.apiKeyEnv
	}
	if changed(requestTimeoutFlagName) {
		settings.RequestTimeout = options.requestTimeout
	}
	if changed(noCacheFlagName) {
		settings.CacheEnabled = !options.disableCache
	}
	if changed(reduceChunksFlagName) {
		settings.ReduceChunkSummaries = options.reduceChunkSummaries
	}
	options.paths.apply(command, &settings.ExclusionPatterns, &settings.UseGitignore, &settings.UseIgnoreFile)

	if validationError := settings.Validate(); validationError != nil {
		return config.SummarizeSettings{}, validationError
	}
	return settings, nil
}

func (app *application) loadEnvironmentFile() error {
	workingDirectory, workingDirectoryError := app.workingDirectory()
	if workingDirectoryError != nil {
		return workingDirectoryError
	}
	environmentPath := filepath.Join(workingDirectory, utils.EnvironmentFileName)
	if loadError := godotenv.Load(environmentPath); loadError != nil && !errors.Is(loadError, os.ErrNotExist) {
		return fmt.Errorf(errorLoadEnvironmentFormat, environmentPath, loadError)
	}
	return nil
}

// runSummarize acquires the source, summarizes its tree, and persists the artifacts.
func (app *application) runSummarize(ctx context.Context, pathOrURL string, settings config.SummarizeSettings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := utils.LoggerOrNop(app.logger)
	if environmentError := app.loadEnvironmentFile(); environmentError != nil {
		return environmentError
	}
	workingDirectory, workingDirectoryError := app.workingDirectory()
	if workingDirectoryError != nil {
		return workingDirectoryError
	}
	if !filepath.IsAbs(settings.OutputDirectory) {
		settings.OutputDirectory = filepath.Join(workingDirectory, settings.OutputDirectory)
	}
	if settings.CachePath != "" && !filepath.IsAbs(settings.CachePath) {
		settings.CachePath = filepath.Join(workingDirectory, settings.CachePath)
	}

	var tokenCounter tokenizer.Counter
	if settings.TokensEnabled {
		counter, _, counterError := tokenizer.NewCounter(tokenizer.Config{Model: settings.TokenModel})
		if counterError != nil {
			return fmt.Errorf(errorTokenizerFormat, counterError)
		}
		tokenCounter = counter
	}

	summarizerConfiguration, resolveError := summarizer.Config{
		Provider:       settings.Provider,
		Model:          settings.Model,
		APIKeyEnv:      settings.APIKeyEnv,
		BaseURL:        settings.BaseURL,
		RequestTimeout: settings.RequestTimeout,
	}.Resolve()
	if resolveError != nil {
		return fmt.Errorf(errorSummarizerFormat, resolveError)
	}
	backend, backendError := app.dependencies.NewSummarizer(ctx, summarizerConfiguration)
	if backendError != nil {
		return fmt.Errorf(errorSummarizerFormat, backendError)
	}
	meter := summarizer.NewMeter(backend, tokenCounter)
	var chain summarizer.Summarizer = meter
	cachePath := ""
	if settings.CacheEnabled {
		cachePath = settings.CachePath
		if cachePath == "" {
			cachePath = filepath.Join(settings.OutputDirectory, summarizer.DefaultCacheFileName)
		}
		cache, cacheError := summarizer.OpenCache(cachePath, meter, summarizerConfiguration.Model, logger)
		if cacheError != nil {
			return cacheError
		}
		defer func() {
			if closeError := cache.Close(); closeError != nil {
				logger.Warn(logMessageCloseCache, zap.Error(closeError))
			}
		}()
		chain = cache
	}

	source, acquireError := repository.Acquire(ctx, pathOrURL, repository.AcquireOptions{
		Mode:             settings.Mode,
		WorkingDirectory: workingDirectory,
		FileSystem:       app.dependencies.FileSystem,
		Logger:           logger,
	})
	if acquireError != nil {
		return acquireError
	}
	defer func() {
		if closeError := source.Close(); closeError != nil {
			logger.Warn(logMessageCloseSource, zap.Error(closeError))
		}
	}()

	policy := exclusion.NewPolicy(exclusion.DefaultDenylists().Extend(
		settings.Exclusions.Directories, settings.Exclusions.Files, settings.Exclusions.Extensions))
	exclusionPatterns := append(append([]string{}, settings.ExclusionPatterns...),
		artifactExclusionPatterns(source.Root, settings.OutputDirectory, cachePath)...)
	ignoreSpec, ignoreError := config.LoadIgnoreSpec(app.dependencies.FileSystem, source.Root, config.IgnoreOptions{
		UseGitignore:      settings.UseGitignore,
		UseIgnoreFile:     settings.UseIgnoreFile,
		ExclusionPatterns: exclusionPatterns,
	})
	if ignoreError != nil {
		return fmt.Errorf(errorIgnoreSpecFormat, ignoreError)
	}
	logger.Debug(logMessageIgnorePatterns, zap.Strings("patterns", ignoreSpec.Patterns()))
	treeBuilder := commands.NewTreeBuilder(app.dependencies.FileSystem, policy, logger)
	tree, treeError := treeBuilder.BuildRootTree(source.Root, ignoreSpec)
	if treeError != nil {
		return treeError
	}

	folderAggregator := aggregator.New(chain, content.NewExtractor(app.dependencies.FileSystem), policy, logger, aggregator.Options{
		FolderWordThreshold:  settings.FolderWordThreshold,
		FileWordThreshold:    settings.FileWordThreshold,
		ChunkSize:            settings.ChunkSize,
		ChunkContext:         settings.ChunkContext,
		Concurrency:          settings.Concurrency,
		ReduceChunkSummaries: settings.ReduceChunkSummaries,
	})
	result, runError := folderAggregator.Run(ctx, tree)
	if runError != nil {
		return runError
	}
	usage := meter.Usage()
	logger.Info(logMessageSummaryUsage,
		zap.Int("calls", usage.Calls),
		zap.Int("words", usage.Words),
		zap.Int("tokens", usage.Tokens))

	output.WriteGlobalSummary(app.dependencies.Stdout, result.Global)

	flattened := commands.Flatten(tree, result.Summaries, "")
	artifactWriter := &output.ArtifactWriter{
		Fs:        app.dependencies.FileSystem,
		Directory: settings.OutputDirectory,
		Format:    settings.Format,
		Timestamp: settings.Timestamp,
		Logger:    logger,
	}
	artifacts, writeError := artifactWriter.Write(source.Name, result.Global, flattened)
	if writeError != nil {
		return writeError
	}
	logger.Info(logMessageArtifactsSaved,
		zap.String("summary", artifacts.SummaryPath),
		zap.String("tree", artifacts.TreePath))

	if settings.Clipboard {
		if copyError := app.dependencies.Clipboard.Copy(result.Global); copyError != nil {
			logger.Warn(logMessageClipboardFailure, zap.Error(copyError))
		}
	}
	return nil
}

var cacheCompanionSuffixes = []string{"", "-wal", "-shm"}

// artifactExclusionPatterns keeps the output directory and the cache database out of the tree
// when they live under root, so a rerun sees the same input as the first run.
func artifactExclusionPatterns(root string, outputDirectory string, cachePath string) []string {
	var patterns []string
	if relativeOutput, inside := pathWithinRoot(root, outputDirectory); inside {
		patterns = append(patterns, relativeOutput+artifactPatternSeparator)
	}
	if cachePath == "" {
		return patterns
	}
	if relativeCache, inside := pathWithinRoot(root, cachePath); inside {
		for _, suffix := range cacheCompanionSuffixes {
			patterns = append(patterns, artifactPatternSeparator+relativeCache+suffix)
		}
	}
	return patterns
}

func pathWithinRoot(root string, target string) (string, bool) {
	relativePath, relativeError := filepath.Rel(root, target)
	if relativeError != nil || relativePath == "." || relativePath == ".." ||
		strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(relativePath), true
}
