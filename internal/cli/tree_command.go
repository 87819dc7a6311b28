package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposum/internal/commands"
	"github.com/temirov/reposum/internal/config"
	"github.com/temirov/reposum/internal/exclusion"
	"github.com/temirov/reposum/internal/output"
	"github.com/temirov/reposum/internal/repository"
	"github.com/temirov/reposum/internal/types"
	"github.com/temirov/reposum/internal/utils"
)

const (
	treeUse              = "tree [path]"
	treeAlias            = "t"
	treeShortDescription = "display the tree that would be summarized (" + treeAlias + ")"

	// treeLongDescription provides detailed help for the tree command.
	treeLongDescription = `Display the directory tree reposum would summarize, without calling a summarizer.
Files whose content is replaced by a placeholder are marked "(name only)".`
	// treeUsageExample demonstrates tree command usage.
	treeUsageExample = `  # Preview the current folder
  reposum tree

  # Emit JSON and include file counts
  reposum tree ./service --format json --summary`

	summaryFlagName        = "summary"
	summaryFlagDescription = "include file counts"
)

type treeOptions struct {
	paths          pathOptions
	format         string
	includeSummary bool
}

// createTreeCommand returns the tree subcommand.
func (app *application) createTreeCommand() *cobra.Command {
	var options treeOptions

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Example: treeUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			pathOrURL := defaultPath
			if len(arguments) == 1 {
				pathOrURL = arguments[0]
			}
			configuration, loadError := app.loadConfiguration()
			if loadError != nil {
				return loadError
			}
			settings := config.ResolveTreeSettings(configuration)
			if command.Flags().Changed(formatFlagName) {
				settings.Format = strings.ToLower(options.format)
			}
			options.paths.apply(command, &settings.ExclusionPatterns, &settings.UseGitignore, &settings.UseIgnoreFile)
			if validationError := settings.Validate(); validationError != nil {
				return validationError
			}
			return app.runTree(command.Context(), command.OutOrStdout(), pathOrURL, settings, options.includeSummary)
		},
	}

	addPathFlags(treeCommand, &options.paths)
	treeCommand.Flags().StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerBooleanFlag(treeCommand.Flags(), &options.includeSummary, summaryFlagName, false, summaryFlagDescription)
	return treeCommand
}

func (app *application) runTree(ctx context.Context, writer io.Writer, pathOrURL string, settings config.TreeSettings, includeSummary bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := utils.LoggerOrNop(app.logger)
	workingDirectory, workingDirectoryError := app.workingDirectory()
	if workingDirectoryError != nil {
		return workingDirectoryError
	}
	source, acquireError := repository.Acquire(ctx, pathOrURL, repository.AcquireOptions{
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
	ignoreSpec, ignoreError := config.LoadIgnoreSpec(app.dependencies.FileSystem, source.Root, config.IgnoreOptions{
		UseGitignore:      settings.UseGitignore,
		UseIgnoreFile:     settings.UseIgnoreFile,
		ExclusionPatterns: settings.ExclusionPatterns,
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
	rendered, renderError := output.RenderTree(settings.Format, treeBuilder.GetTreeData(tree), includeSummary)
	if renderError != nil {
		return renderError
	}
	_, writeError := io.WriteString(writer, rendered)
	return writeError
}
