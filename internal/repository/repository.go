// Package repository resolves the directory to summarize from a local path or a git URL.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/reposum/internal/types"
	"github.com/temirov/reposum/internal/utils"
)

const (
	gitSuffix          = ".git"
	temporaryDirPrefix = "reposum-repo-"

	errorUnknownModeFormat     = "unknown mode %q (expected %s or %s)"
	errorNotDirectoryFormat    = "local folder %s does not exist or is not a directory"
	errorAbsolutePathFormat    = "getting absolute path for %s: %w"
	errorTemporaryDirFormat    = "create temporary directory: %w"
	errorCloneFormat           = "clone repository %s: %w"
	errorRemoveTemporaryFormat = "remove temporary repository %s: %w"

	logMessageCloning = "cloning repository"
	logMessageCloned  = "cloned repository"
	logMessageRemoved = "removed temporary repository"
)

var gitURLPrefixes = []string{"git@", "https://", "http://", "ssh://", "git://", "file://"}

// Source is an acquired directory ready for tree building. Close releases any temporary clone.
type Source struct {
	Root string
	Name string
	Mode string

	temporaryDirectory string
	logger             *zap.Logger
}

// Close removes the temporary clone of a repo-mode source. It is a no-op for local sources.
func (source *Source) Close() error {
	if source == nil || source.temporaryDirectory == "" {
		return nil
	}
	if removeError := os.RemoveAll(source.temporaryDirectory); removeError != nil {
		return fmt.Errorf(errorRemoveTemporaryFormat, source.temporaryDirectory, removeError)
	}
	utils.LoggerOrNop(source.logger).Info(logMessageRemoved, zap.String("path", source.temporaryDirectory))
	source.temporaryDirectory = ""
	return nil
}

// IsGitURL reports whether input looks like a git remote rather than a local path.
func IsGitURL(input string) bool {
	trimmed := strings.TrimSpace(input)
	if strings.HasSuffix(trimmed, gitSuffix) {
		return true
	}
	for _, prefix := range gitURLPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// InferMode returns types.ModeRepo for git URLs and types.ModeLocal otherwise.
func InferMode(pathOrURL string) string {
	if IsGitURL(pathOrURL) {
		return types.ModeRepo
	}
	return types.ModeLocal
}

// RepoOrFolderName derives the display name of a source: the last URL segment without its
// .git suffix in repo mode, the base name of the absolute path in local mode.
func RepoOrFolderName(pathOrURL string, mode string) string {
	if mode == types.ModeRepo {
		trimmed := strings.TrimRight(strings.TrimSpace(pathOrURL), "/")
		name := trimmed[strings.LastIndexAny(trimmed, "/:")+1:]
		return strings.TrimSuffix(name, gitSuffix)
	}
	absolutePath, absolutePathError := filepath.Abs(pathOrURL)
	if absolutePathError != nil {
		return filepath.Base(pathOrURL)
	}
	return filepath.Base(absolutePath)
}

// AcquireOptions controls how Acquire resolves a source.
type AcquireOptions struct {
	// Mode is types.ModeLocal or types.ModeRepo; empty infers it from the argument.
	Mode string
	// WorkingDirectory anchors relative local paths. Empty uses the process working directory.
	WorkingDirectory string
	// FileSystem checks local sources. Nil uses the operating system filesystem.
	FileSystem afero.Fs
	Logger     *zap.Logger
}

// Acquire resolves pathOrURL. Local sources must be existing directories; repo sources are
// cloned into a fresh temporary directory named after the repository.
func Acquire(ctx context.Context, pathOrURL string, options AcquireOptions) (*Source, error) {
	logger := utils.LoggerOrNop(options.Logger)
	mode := options.Mode
	if mode == "" {
		mode = InferMode(pathOrURL)
	}

	switch mode {
	case types.ModeLocal:
		fileSystem := options.FileSystem
		if fileSystem == nil {
			fileSystem = afero.NewOsFs()
		}
		localPath := pathOrURL
		if !filepath.IsAbs(localPath) && options.WorkingDirectory != "" {
			localPath = filepath.Join(options.WorkingDirectory, localPath)
		}
		absolutePath, absolutePathError := filepath.Abs(localPath)
		if absolutePathError != nil {
			return nil, fmt.Errorf(errorAbsolutePathFormat, pathOrURL, absolutePathError)
		}
		isDirectory, statError := afero.IsDir(fileSystem, absolutePath)
		if statError != nil || !isDirectory {
			return nil, fmt.Errorf(errorNotDirectoryFormat, absolutePath)
		}
		return &Source{Root: absolutePath, Name: filepath.Base(absolutePath), Mode: mode, logger: logger}, nil

	case types.ModeRepo:
		temporaryDirectory, temporaryDirError := os.MkdirTemp("", temporaryDirPrefix)
		if temporaryDirError != nil {
			return nil, fmt.Errorf(errorTemporaryDirFormat, temporaryDirError)
		}
		name := RepoOrFolderName(pathOrURL, mode)
		cloneDirectory := filepath.Join(temporaryDirectory, name)
		logger.Info(logMessageCloning, zap.String("url", pathOrURL), zap.String("path", cloneDirectory))
		_, cloneError := git.PlainCloneContext(ctx, cloneDirectory, false, &git.CloneOptions{
			URL:           pathOrURL,
			ReferenceName: plumbing.HEAD,
			SingleBranch:  true,
		})
		if cloneError != nil {
			_ = os.RemoveAll(temporaryDirectory)
			return nil, fmt.Errorf(errorCloneFormat, pathOrURL, cloneError)
		}
		logger.Info(logMessageCloned, zap.String("url", pathOrURL))
		return &Source{
			Root:               cloneDirectory,
			Name:               name,
			Mode:               mode,
			temporaryDirectory: temporaryDirectory,
			logger:             logger,
		}, nil

	default:
		return nil, fmt.Errorf(errorUnknownModeFormat, mode, types.ModeLocal, types.ModeRepo)
	}
}
