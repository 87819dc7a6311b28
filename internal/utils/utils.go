// Package utils holds small helpers shared by the reposum packages.
package utils

import (
	"path/filepath"
)

const (
	// IgnoreFileName names the repository-level ignore file read alongside .gitignore.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName names the Git ignore file.
	GitIgnoreFileName = ".gitignore"

	currentDirectoryPath = "."
)

// DeduplicatePatterns keeps the first occurrence of every pattern in input order.
func DeduplicatePatterns(patterns []string) []string {
	seenPatterns := make(map[string]struct{}, len(patterns))
	uniquePatterns := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, seen := seenPatterns[pattern]; seen {
			continue
		}
		seenPatterns[pattern] = struct{}{}
		uniquePatterns = append(uniquePatterns, pattern)
	}
	return uniquePatterns
}

// RelativePathOrSelf returns fullPath relative to repositoryRoot in forward-slash form, "." for the
// root itself, or the cleaned fullPath when the two cannot be related.
func RelativePathOrSelf(fullPath, repositoryRoot string) string {
	cleanFullPath := filepath.Clean(fullPath)
	absoluteRoot, absoluteError := filepath.Abs(repositoryRoot)
	if absoluteError != nil {
		return cleanFullPath
	}
	relativePath, relativeError := filepath.Rel(absoluteRoot, cleanFullPath)
	if relativeError != nil {
		return cleanFullPath
	}
	if relativePath == currentDirectoryPath {
		return currentDirectoryPath
	}
	return filepath.ToSlash(relativePath)
}
