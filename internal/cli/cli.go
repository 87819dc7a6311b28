// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/reposum/internal/config"
	"github.com/temirov/reposum/internal/services/clipboard"
	"github.com/temirov/reposum/internal/summarizer"
	"github.com/temirov/reposum/internal/utils"
)

const (
	versionFlagName      = "version"
	configFlagName       = "config"
	quietFlagName        = "quiet"
	versionTemplate      = "reposum version: %s\n"
	defaultPath          = "."
	rootUse              = "reposum"
	rootShortDescription = "reposum command line interface"
	rootLongDescription  = `reposum summarizes a local folder or a git repository bottom-up.
Every folder is summarized from its files and the summaries of its subfolders,
and the per-folder summaries are written next to one global summary.
Use tree to preview what would be summarized and init to write a configuration file.`
	versionFlagDescription = "display application version"
	configFlagDescription  = "path to a configuration file (default ./config.yaml)"
	quietFlagDescription   = "log warnings and errors only"

	exclusionFlagName               = "e"
	noGitignoreFlagName             = "no-gitignore"
	noIgnoreFlagName                = "no-ignore"
	formatFlagName                  = "format"
	exclusionFlagDescription        = "exclude path pattern"
	disableGitignoreFlagDescription = "do not use .gitignore"
	disableIgnoreFlagDescription    = "do not use .ignore"
	formatFlagDescription           = "output format (raw, json, xml)"

	errorWorkingDirectoryFormat  = "unable to determine working directory: %w"
	errorLoadConfigurationFormat = "load configuration: %w"
)

// SummarizerFactory builds the summarization backend for a resolved provider configuration.
type SummarizerFactory func(ctx context.Context, configuration summarizer.Config) (summarizer.Summarizer, error)

// Dependencies are the collaborators of the command tree. Zero values select the real
// implementations.
type Dependencies struct {
	Stdout           io.Writer
	Stderr           io.Writer
	FileSystem       afero.Fs
	Logger           *zap.Logger
	NewSummarizer    SummarizerFactory
	Clipboard        clipboard.Copier
	WorkingDirectory string
	HomeDirectory    string
}

type application struct {
	dependencies Dependencies
	configPath   string
	quiet        bool
	logger       *zap.Logger
	ownsLogger   bool
}

// Execute runs the reposum application.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rootCommand := NewRootCommand(Dependencies{})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	app := &application{dependencies: dependencies.withDefaults()}
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return app.initializeLogger()
		},
		PersistentPostRun: func(command *cobra.Command, arguments []string) {
			if app.ownsLogger && app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}
	rootCommand.SetOut(app.dependencies.Stdout)
	rootCommand.SetErr(app.dependencies.Stderr)
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &app.quiet, quietFlagName, false, quietFlagDescription)
	rootCommand.AddCommand(
		app.createSummarizeCommand(),
		app.createTreeCommand(),
		app.createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func (dependencies Dependencies) withDefaults() Dependencies {
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	if dependencies.Stderr == nil {
		dependencies.Stderr = os.Stderr
	}
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = afero.NewOsFs()
	}
	if dependencies.NewSummarizer == nil {
		dependencies.NewSummarizer = func(ctx context.Context, configuration summarizer.Config) (summarizer.Summarizer, error) {
			chatSummarizer, summarizerError := summarizer.New(ctx, configuration)
			if summarizerError != nil {
				return nil, summarizerError
			}
			return chatSummarizer, nil
		}
	}
	if dependencies.Clipboard == nil {
		dependencies.Clipboard = clipboard.NewService()
	}
	return dependencies
}

func (app *application) initializeLogger() error {
	if app.dependencies.Logger != nil {
		app.logger = app.dependencies.Logger
		return nil
	}
	if app.logger != nil {
		return nil
	}
	level := zapcore.InfoLevel
	if app.quiet {
		level = zapcore.WarnLevel
	}
	logger, loggerError := utils.NewApplicationLogger(level)
	if loggerError != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
	}
	app.logger = logger
	app.ownsLogger = true
	return nil
}

func (app *application) workingDirectory() (string, error) {
	if app.dependencies.WorkingDirectory != "" {
		return app.dependencies.WorkingDirectory, nil
	}
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return "", fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
	}
	return workingDirectory, nil
}

func (app *application) loadConfiguration() (config.ApplicationConfiguration, error) {
	workingDirectory, workingDirectoryError := app.workingDirectory()
	if workingDirectoryError != nil {
		return config.ApplicationConfiguration{}, workingDirectoryError
	}
	configuration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: app.configPath,
		HomeDirectory:    app.dependencies.HomeDirectory,
	})
	if loadError != nil {
		return config.ApplicationConfiguration{}, fmt.Errorf(errorLoadConfigurationFormat, loadError)
	}
	return configuration, nil
}

// pathOptions stores configuration for path-related flags.
type pathOptions struct {
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
}

// addPathFlags registers path-related flags on the command.
func addPathFlags(command *cobra.Command, options *pathOptions) {
	command.Flags().StringArrayVarP(&options.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	registerBooleanFlag(command.Flags(), &options.disableGitignore, noGitignoreFlagName, false, disableGitignoreFlagDescription)
	registerBooleanFlag(command.Flags(), &options.disableIgnoreFile, noIgnoreFlagName, false, disableIgnoreFlagDescription)
}

// apply overlays changed path flags onto configured values.
func (options pathOptions) apply(command *cobra.Command, exclusionPatterns *[]string, useGitignore *bool, useIgnoreFile *bool) {
	if len(options.exclusionPatterns) > 0 {
		*exclusionPatterns = utils.DeduplicatePatterns(append(*exclusionPatterns, options.exclusionPatterns...))
	}
	if command.Flags().Changed(noGitignoreFlagName) {
		*useGitignore = !options.disableGitignore
	}
	if command.Flags().Changed(noIgnoreFlagName) {
		*useIgnoreFile = !options.disableIgnoreFile
	}
}
