package config

import (
	"path"
	"strings"
)

const (
	patternSeparator        = "/"
	windowsPatternSeparator = `\`
)

// exclusionPattern is a compiled .ignore or --exclude entry.
//
// A trailing slash anchors the pattern at the root and matches the directory and everything below it.
// A single segment without a leading slash matches the final path segment at any depth. Any other
// pattern must match the whole path segment by segment.
type exclusionPattern struct {
	segments      []string
	directoryTree bool
	anchored      bool
}

func compileExclusionPatterns(rawPatterns []string) []exclusionPattern {
	compiled := make([]exclusionPattern, 0, len(rawPatterns))
	for _, rawPattern := range rawPatterns {
		normalizedPattern := strings.ReplaceAll(rawPattern, windowsPatternSeparator, patternSeparator)
		directoryTree := strings.HasSuffix(normalizedPattern, patternSeparator)
		anchored := strings.HasPrefix(normalizedPattern, patternSeparator)
		trimmedPattern := strings.Trim(normalizedPattern, patternSeparator)
		if trimmedPattern == "" {
			continue
		}
		compiled = append(compiled, exclusionPattern{
			segments:      strings.Split(trimmedPattern, patternSeparator),
			directoryTree: directoryTree,
			anchored:      anchored,
		})
	}
	return compiled
}

func (pattern exclusionPattern) matches(pathSegments []string) bool {
	switch {
	case pattern.directoryTree:
		return len(pathSegments) >= len(pattern.segments) && segmentsMatch(pathSegments[:len(pattern.segments)], pattern.segments)
	case len(pattern.segments) == 1 && !pattern.anchored:
		return segmentsMatch(pathSegments[len(pathSegments)-1:], pattern.segments)
	default:
		return len(pathSegments) == len(pattern.segments) && segmentsMatch(pathSegments, pattern.segments)
	}
}

func matchAnyExclusionPattern(patterns []exclusionPattern, relativePath string) bool {
	if len(patterns) == 0 {
		return false
	}
	normalizedPath := strings.Trim(strings.ReplaceAll(relativePath, windowsPatternSeparator, patternSeparator), patternSeparator)
	if normalizedPath == "" {
		return false
	}
	pathSegments := strings.Split(normalizedPath, patternSeparator)
	for _, pattern := range patterns {
		if pattern.matches(pathSegments) {
			return true
		}
	}
	return false
}

func segmentsMatch(pathSegments, patternSegments []string) bool {
	for index, patternSegment := range patternSegments {
		matched, matchError := path.Match(patternSegment, pathSegments[index])
		if matchError != nil || !matched {
			return false
		}
	}
	return true
}
