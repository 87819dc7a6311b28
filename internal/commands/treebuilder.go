package commands

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/reposum/internal/exclusion"
	"github.com/temirov/reposum/internal/utils"
)

// TreeBuilder builds folder trees using the configured filesystem and exclusion policy.
type TreeBuilder struct {
	Fs     afero.Fs
	Policy *exclusion.Policy
	Logger *zap.Logger
}

// NewTreeBuilder returns a TreeBuilder; nil arguments select the operating system filesystem,
// the default exclusion policy, and a no-op logger.
func NewTreeBuilder(fileSystem afero.Fs, policy *exclusion.Policy, logger *zap.Logger) *TreeBuilder {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	if policy == nil {
		policy = exclusion.NewDefaultPolicy()
	}
	return &TreeBuilder{Fs: fileSystem, Policy: policy, Logger: utils.LoggerOrNop(logger)}
}
