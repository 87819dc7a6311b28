// Package config loads ignore files into a compiled ignore spec and reads application configuration.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/spf13/afero"

	"github.com/temirov/reposum/internal/utils"
)

const (
	ignoreCommentPrefix = "#"
	ignorePathSeparator = "/"

	errorLoadIgnoreFileFormat = "loading %s from %s: %w"
)

// IgnoreOptions selects the sources folded into an ignore spec.
type IgnoreOptions struct {
	UseGitignore      bool
	UseIgnoreFile     bool
	ExclusionPatterns []string
}

// DefaultIgnoreOptions enables both ignore files and no extra patterns.
func DefaultIgnoreOptions() IgnoreOptions {
	return IgnoreOptions{UseGitignore: true, UseIgnoreFile: true}
}

// IgnoreSpec matches repository-relative, forward-slash paths against the repository's
// .gitignore, the .ignore file, and explicit exclusion patterns.
type IgnoreSpec struct {
	gitignoreMatcher gitignore.Matcher
	patterns         []string
	compiled         []exclusionPattern
}

// Match reports whether the path is ignored.
func (spec *IgnoreSpec) Match(relativePath string, isDirectory bool) bool {
	if spec == nil {
		return false
	}
	normalizedPath := filepath.ToSlash(relativePath)
	if spec.gitignoreMatcher != nil && spec.gitignoreMatcher.Match(strings.Split(normalizedPath, ignorePathSeparator), isDirectory) {
		return true
	}
	return matchAnyExclusionPattern(spec.compiled, normalizedPath)
}

// Patterns returns the .ignore and exclusion patterns held outside the gitignore matcher.
func (spec *IgnoreSpec) Patterns() []string {
	if spec == nil {
		return nil
	}
	return append([]string(nil), spec.patterns...)
}

// LoadIgnoreSpec compiles the ignore sources found at repositoryRoot. It returns nil when no
// ignore file exists and no exclusion patterns are given, so every check evaluates to false.
func LoadIgnoreSpec(fileSystem afero.Fs, repositoryRoot string, options IgnoreOptions) (*IgnoreSpec, error) {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	spec := &IgnoreSpec{}
	hasSource := false

	if options.UseGitignore {
		gitIgnorePath := filepath.Join(repositoryRoot, utils.GitIgnoreFileName)
		gitIgnoreBytes, readError := afero.ReadFile(fileSystem, gitIgnorePath)
		switch {
		case readError == nil:
			gitignoreMatcher, parseError := compileGitignore(gitIgnoreBytes)
			if parseError != nil {
				return nil, fmt.Errorf(errorLoadIgnoreFileFormat, utils.GitIgnoreFileName, repositoryRoot, parseError)
			}
			spec.gitignoreMatcher = gitignoreMatcher
			hasSource = true
		case !os.IsNotExist(readError):
			return nil, fmt.Errorf(errorLoadIgnoreFileFormat, utils.GitIgnoreFileName, repositoryRoot, readError)
		}
	}

	var patterns []string
	if options.UseIgnoreFile {
		ignoreFilePath := filepath.Join(repositoryRoot, utils.IgnoreFileName)
		ignorePatterns, exists, loadError := LoadIgnoreFilePatterns(fileSystem, ignoreFilePath)
		if loadError != nil {
			return nil, fmt.Errorf(errorLoadIgnoreFileFormat, utils.IgnoreFileName, repositoryRoot, loadError)
		}
		if exists {
			hasSource = true
		}
		patterns = append(patterns, ignorePatterns...)
	}

	for _, pattern := range options.ExclusionPatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		patterns = append(patterns, trimmedPattern)
		hasSource = true
	}

	if !hasSource {
		return nil, nil
	}
	spec.patterns = utils.DeduplicatePatterns(patterns)
	spec.compiled = compileExclusionPatterns(spec.patterns)
	return spec, nil
}

// compileGitignore parses .gitignore content rooted at the repository. Later lines take precedence,
// so a negation only re-includes paths excluded by the lines above it.
func compileGitignore(content []byte) (gitignore.Matcher, error) {
	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ignoreCommentPrefix) {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return gitignore.NewMatcher(patterns), nil
}

// LoadIgnoreFilePatterns reads an ignore file and returns its patterns, skipping blanks and
// comments. The boolean reports whether the file exists.
func LoadIgnoreFilePatterns(fileSystem afero.Fs, ignoreFilePath string) ([]string, bool, error) {
	fileHandle, openFileError := fileSystem.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, false, nil
		}
		return nil, false, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", ignoreFilePath, closeError)
		}
	}()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, ignoreCommentPrefix) {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, true, scanError
	}
	return ignorePatterns, true, nil
}
