// Package types defines every cross‑package data structure used by the reposum CLI.
package types

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"sync"
)

const (
	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"

	ModeLocal = "local"
	ModeRepo  = "repo"

	// RootRelativePath is the relative path recorded for the tree root.
	RootRelativePath = "."
)

// ErrSummaryAlreadyRecorded is returned when a folder summary is recorded twice.
var ErrSummaryAlreadyRecorded = errors.New("summary already recorded")

// FolderNode is one directory of the repository and its immediate listing.
// A node is only mutated while the tree is being built.
type FolderNode struct {
	Name         string
	Path         string
	RelativePath string
	Files        []string
	Subfolders   []*FolderNode
}

// NewFolderNode returns an empty node for the directory at path.
func NewFolderNode(name, path, relativePath string) *FolderNode {
	return &FolderNode{Name: name, Path: path, RelativePath: relativePath}
}

// AddFile appends a file name in enumeration order.
func (node *FolderNode) AddFile(fileName string) {
	node.Files = append(node.Files, fileName)
}

// AddSubfolder attaches an owned child node.
func (node *FolderNode) AddSubfolder(subfolder *FolderNode) {
	node.Subfolders = append(node.Subfolders, subfolder)
}

// Summaries maps a folder's relative path to its header-formatted summary.
// Every key is written at most once.
type Summaries struct {
	mutex   sync.RWMutex
	entries map[string]string
}

// NewSummaries returns an empty index.
func NewSummaries() *Summaries {
	return &Summaries{entries: make(map[string]string)}
}

// Record stores the summary for the node at relativePath.
func (summaries *Summaries) Record(relativePath string, summary string) error {
	summaries.mutex.Lock()
	defer summaries.mutex.Unlock()
	if _, exists := summaries.entries[relativePath]; exists {
		return ErrSummaryAlreadyRecorded
	}
	summaries.entries[relativePath] = summary
	return nil
}

// Lookup returns the recorded summary for relativePath.
func (summaries *Summaries) Lookup(relativePath string) (string, bool) {
	if summaries == nil {
		return "", false
	}
	summaries.mutex.RLock()
	defer summaries.mutex.RUnlock()
	summary, exists := summaries.entries[relativePath]
	return summary, exists
}

// Len reports the number of recorded summaries.
func (summaries *Summaries) Len() int {
	if summaries == nil {
		return 0
	}
	summaries.mutex.RLock()
	defer summaries.mutex.RUnlock()
	return len(summaries.entries)
}

// FlattenedEntry is one node of a flattened summary tree.
type FlattenedEntry struct {
	Key     string  `json:"key"`
	Summary *string `json:"summary"`
}

// FlattenedSummaryMap maps hierarchical folder names to summaries, preserving traversal order.
type FlattenedSummaryMap struct {
	entries []FlattenedEntry
	index   map[string]int
}

// Add appends an entry. A repeated key replaces the earlier value in place.
func (flattened *FlattenedSummaryMap) Add(key string, summary *string) {
	if flattened.index == nil {
		flattened.index = make(map[string]int)
	}
	if position, exists := flattened.index[key]; exists {
		flattened.entries[position].Summary = summary
		return
	}
	flattened.index[key] = len(flattened.entries)
	flattened.entries = append(flattened.entries, FlattenedEntry{Key: key, Summary: summary})
}

// Get returns the summary stored under key.
func (flattened FlattenedSummaryMap) Get(key string) (*string, bool) {
	position, exists := flattened.index[key]
	if !exists {
		return nil, false
	}
	return flattened.entries[position].Summary, true
}

// Len reports the number of entries.
func (flattened FlattenedSummaryMap) Len() int {
	return len(flattened.entries)
}

// Keys returns the keys in traversal order.
func (flattened FlattenedSummaryMap) Keys() []string {
	keys := make([]string, 0, len(flattened.entries))
	for _, entry := range flattened.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// Entries returns a copy of the entries in traversal order.
func (flattened FlattenedSummaryMap) Entries() []FlattenedEntry {
	return append([]FlattenedEntry(nil), flattened.entries...)
}

// MarshalJSON encodes the map as a single JSON object keeping traversal order.
func (flattened FlattenedSummaryMap) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for position, entry := range flattened.entries {
		if position > 0 {
			buffer.WriteByte(',')
		}
		if keyError := encodeUnescaped(&buffer, entry.Key); keyError != nil {
			return nil, keyError
		}
		buffer.WriteByte(':')
		if valueError := encodeUnescaped(&buffer, entry.Summary); valueError != nil {
			return nil, valueError
		}
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// encodeUnescaped writes value as JSON without HTML escaping so placeholder markers stay readable.
func encodeUnescaped(buffer *bytes.Buffer, value any) error {
	var encoded bytes.Buffer
	encoder := json.NewEncoder(&encoded)
	encoder.SetEscapeHTML(false)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return encodeError
	}
	buffer.Write(bytes.TrimRight(encoded.Bytes(), "\n"))
	return nil
}

// TreeOutputNode represents a node of a directory tree returned by the tree command.
type TreeOutputNode struct {
	XMLName      xml.Name          `json:"-" xml:"node"`
	Path         string            `json:"path" xml:"path"`
	Name         string            `json:"name" xml:"name"`
	Type         string            `json:"type" xml:"type"`
	ContentState string            `json:"content,omitempty" xml:"content,omitempty"`
	Language     string            `json:"language,omitempty" xml:"language,omitempty"`
	Children     []*TreeOutputNode `json:"children,omitempty" xml:"children>node,omitempty"`
	TotalFiles   int               `json:"totalFiles,omitempty" xml:"totalFiles,omitempty"`
}

const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"

	ContentStateRead        = "read"
	ContentStatePlaceholder = "placeholder"
)
