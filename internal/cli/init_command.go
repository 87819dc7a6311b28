package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/reposum/internal/config"
)

const (
	initUse                  = "init"
	initShortDescription     = "write a default configuration file"
	initLongDescription      = "Write the default configuration to ./config.yaml, or to the global configuration directory with --global."
	globalFlagName           = "global"
	forceFlagName            = "force"
	globalFlagDescription    = "write the configuration into the global configuration directory"
	forceFlagDescription     = "overwrite an existing configuration file"
	initSuccessMessageFormat = "configuration written to %s\n"
)

// createInitCommand returns the init subcommand.
func (app *application) createInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			workingDirectory, workingDirectoryError := app.workingDirectory()
			if workingDirectoryError != nil {
				return workingDirectoryError
			}
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			destinationPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: workingDirectory,
				HomeDirectory:    app.dependencies.HomeDirectory,
				FileSystem:       app.dependencies.FileSystem,
			})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.OutOrStdout(), initSuccessMessageFormat, destinationPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}
