// Package commands builds the folder tree consumed by summarization and flattens summarized trees.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/reposum/internal/exclusion"
	"github.com/temirov/reposum/internal/types"
	"github.com/temirov/reposum/internal/utils"
)

const (
	// warningSkipDirectoryMessage is logged when a directory cannot be listed.
	warningSkipDirectoryMessage = "skipping directory contents"

	// errorAbsolutePathFormat is used when the absolute path cannot be determined.
	errorAbsolutePathFormat = "getting absolute path for %s: %w"

	// errorRootNotDirectoryFormat is used when the tree root is not a directory.
	errorRootNotDirectoryFormat = "%s is not a directory"

	// errorStatRootFormat is used when the tree root cannot be inspected.
	errorStatRootFormat = "stat %s: %w"
)

// BuildRootTree resolves rootDirectoryPath and builds its tree with itself as the repository root.
func (treeBuilder *TreeBuilder) BuildRootTree(rootDirectoryPath string, ignoreSpec exclusion.IgnoreSpec) (*types.FolderNode, error) {
	absoluteRootPath, absolutePathError := filepath.Abs(rootDirectoryPath)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootDirectoryPath, absolutePathError)
	}
	rootInfo, statError := treeBuilder.fileSystem().Stat(absoluteRootPath)
	if statError != nil {
		return nil, fmt.Errorf(errorStatRootFormat, absoluteRootPath, statError)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf(errorRootNotDirectoryFormat, absoluteRootPath)
	}
	return treeBuilder.BuildTree(absoluteRootPath, absoluteRootPath, ignoreSpec), nil
}

// BuildTree enumerates the directory at path and returns its node with every reachable,
// non-excluded descendant directory attached. Entries are visited in name order. Listing
// failures are logged and leave the affected node without children.
func (treeBuilder *TreeBuilder) BuildTree(path string, repositoryRoot string, ignoreSpec exclusion.IgnoreSpec) *types.FolderNode {
	node := types.NewFolderNode(nodeName(path), path, utils.RelativePathOrSelf(path, repositoryRoot))

	directoryEntries, readDirectoryError := afero.ReadDir(treeBuilder.fileSystem(), path)
	if readDirectoryError != nil {
		treeBuilder.logger().Warn(warningSkipDirectoryMessage, zap.String("path", path), zap.Error(readDirectoryError))
		return node
	}

	policy := treeBuilder.policy()
	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		childPath := filepath.Join(path, entryName)
		relativeChildPath := utils.RelativePathOrSelf(childPath, repositoryRoot)
		entryMode := directoryEntry.Mode()

		if policy.ShouldExcludeByIgnoreSpec(relativeChildPath, entryMode.IsDir(), ignoreSpec) {
			continue
		}

		switch {
		case entryMode.IsDir():
			if policy.ShouldExcludeDir(entryName) {
				continue
			}
			node.AddSubfolder(treeBuilder.BuildTree(childPath, repositoryRoot, ignoreSpec))
		case entryMode.IsRegular():
			if policy.ShouldExcludeFile(entryName) {
				continue
			}
			node.AddFile(entryName)
		}
	}

	return node
}

func (treeBuilder *TreeBuilder) fileSystem() afero.Fs {
	if treeBuilder.Fs == nil {
		return afero.NewOsFs()
	}
	return treeBuilder.Fs
}

func (treeBuilder *TreeBuilder) policy() *exclusion.Policy {
	if treeBuilder.Policy == nil {
		return exclusion.NewDefaultPolicy()
	}
	return treeBuilder.Policy
}

func (treeBuilder *TreeBuilder) logger() *zap.Logger {
	return utils.LoggerOrNop(treeBuilder.Logger)
}

func nodeName(path string) string {
	name := filepath.Base(path)
	if name == "" || name == string(os.PathSeparator) || name == "." {
		return path
	}
	return name
}
