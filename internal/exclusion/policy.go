// Package exclusion decides which directories and files reach the folder tree and which
// file bodies are read and summarized.
package exclusion

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// HiddenMarker prefixes names that are excluded entirely.
	HiddenMarker = "."

	placeholderFormat = "<File '%s' with extension '%s' is excluded from content summarization; only file name is included>"
)

// IgnoreSpec is a compiled ignore-pattern set evaluated against repository-relative paths.
type IgnoreSpec interface {
	Match(relativePath string, isDirectory bool) bool
}

// Denylists holds the fixed exclusion configuration. Keys are compared exactly for names and
// case-insensitively for extensions.
type Denylists struct {
	Directories  []string
	Files        []string
	Extensions   []string
	LanguageTags map[string]string
}

// DefaultDenylists returns the built-in exclusion configuration.
func DefaultDenylists() Denylists {
	return Denylists{
		Directories: []string{".git", ".svn", "__pycache__", "pycache"},
		Files:       []string{".env"},
		Extensions: []string{
			".yaml", ".yml", ".xlsx", ".docx", ".pptx", ".json", ".csv", ".png", ".jpeg",
			".txt", ".wav", ".mp3", ".mp4", ".lock", ".ptl", ".h5", ".pdf", ".pickle",
		},
		LanguageTags: map[string]string{
			".py":   "python",
			".js":   "javascript",
			".ts":   "typescript",
			".java": "java",
			".c":    "c",
			".cpp":  "cpp",
			".html": "html",
			".css":  "css",
			".sh":   "bash",
			".go":   "go",
		},
	}
}

// Extend returns a copy of denylists with the additional entries appended.
func (denylists Denylists) Extend(directories, files, extensions []string) Denylists {
	extended := Denylists{
		Directories:  append(append([]string{}, denylists.Directories...), directories...),
		Files:        append(append([]string{}, denylists.Files...), files...),
		Extensions:   append(append([]string{}, denylists.Extensions...), extensions...),
		LanguageTags: make(map[string]string, len(denylists.LanguageTags)),
	}
	for extension, tag := range denylists.LanguageTags {
		extended.LanguageTags[extension] = tag
	}
	return extended
}

// Policy evaluates the denylists. It is immutable and safe for concurrent use.
type Policy struct {
	directories  map[string]struct{}
	files        map[string]struct{}
	extensions   map[string]struct{}
	languageTags map[string]string
}

// NewPolicy compiles denylists into a Policy.
func NewPolicy(denylists Denylists) *Policy {
	policy := &Policy{
		directories:  make(map[string]struct{}, len(denylists.Directories)),
		files:        make(map[string]struct{}, len(denylists.Files)),
		extensions:   make(map[string]struct{}, len(denylists.Extensions)),
		languageTags: make(map[string]string, len(denylists.LanguageTags)),
	}
	for _, name := range denylists.Directories {
		policy.directories[name] = struct{}{}
	}
	for _, name := range denylists.Files {
		policy.files[name] = struct{}{}
	}
	for _, extension := range denylists.Extensions {
		policy.extensions[normalizeExtension(extension)] = struct{}{}
	}
	for extension, tag := range denylists.LanguageTags {
		policy.languageTags[normalizeExtension(extension)] = tag
	}
	return policy
}

// NewDefaultPolicy returns a Policy over DefaultDenylists.
func NewDefaultPolicy() *Policy {
	return NewPolicy(DefaultDenylists())
}

// ShouldExcludeDir reports whether the directory is hidden or denylisted.
func (policy *Policy) ShouldExcludeDir(directoryName string) bool {
	if strings.HasPrefix(directoryName, HiddenMarker) {
		return true
	}
	_, denied := policy.directories[directoryName]
	return denied
}

// ShouldExcludeFile reports whether the file is hidden or denylisted.
// Excluded files are not represented in the tree at all.
func (policy *Policy) ShouldExcludeFile(fileName string) bool {
	if strings.HasPrefix(fileName, HiddenMarker) {
		return true
	}
	_, denied := policy.files[fileName]
	return denied
}

// ShouldProcessFileContent reports whether the file body may be read and summarized.
func (policy *Policy) ShouldProcessFileContent(fileName string) bool {
	_, denied := policy.extensions[normalizeExtension(filepath.Ext(fileName))]
	return !denied
}

// ShouldExcludeByIgnoreSpec reports whether spec matches the repository-relative path.
// A nil spec never matches.
func (policy *Policy) ShouldExcludeByIgnoreSpec(relativePath string, isDirectory bool, spec IgnoreSpec) bool {
	if spec == nil {
		return false
	}
	return spec.Match(filepath.ToSlash(relativePath), isDirectory)
}

// LanguageTag returns the fenced-block language for fileName, or an empty string.
func (policy *Policy) LanguageTag(fileName string) string {
	return policy.languageTags[normalizeExtension(filepath.Ext(fileName))]
}

// Placeholder returns the text standing in for the body of a content-ineligible file.
func Placeholder(fileName string) string {
	return fmt.Sprintf(placeholderFormat, fileName, filepath.Ext(fileName))
}

func normalizeExtension(extension string) string {
	return strings.ToLower(extension)
}
