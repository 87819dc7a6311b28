// Package output renders flattened summary maps and folder trees and persists run artifacts.
package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/temirov/reposum/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	separatorLine = "----------------------------------------"

	xmlHeader          = xml.Header
	xmlSummariesName   = "summaries"
	globalSummaryTitle = "===== GLOBAL SUMMARY ====="

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	rawFolderHeaderFormat  = "=== %s ===\n"
	rawMissingSummary      = "(no summary)"
	treeFileFormat         = "%s[File] %s\n"
	treePlaceholderFormat  = "%s[File] %s (name only)\n"
	treeLanguageFileFormat = "%s[File] %s (%s)\n"
	directorySummaryFormat = "Summary: %d %s"
	errorUnsupportedFormat = "unsupported output format: %s"
)

// RenderSummaryJSON encodes the flattened map as an indented JSON object in traversal order.
func RenderSummaryJSON(flattened types.FlattenedSummaryMap) (string, error) {
	encoded, marshalError := flattened.MarshalJSON()
	if marshalError != nil {
		return "", marshalError
	}
	var indented bytes.Buffer
	if indentError := json.Indent(&indented, encoded, indentPrefix, indentSpacer); indentError != nil {
		return "", indentError
	}
	return indented.String(), nil
}

type xmlFolderSummary struct {
	Key     string  `xml:"key,attr"`
	Summary *string `xml:"summary,omitempty"`
}

// RenderSummaryXML encodes the flattened map as an XML document of folder elements.
func RenderSummaryXML(flattened types.FlattenedSummaryMap) (string, error) {
	entries := flattened.Entries()
	wrapper := struct {
		XMLName xml.Name           `xml:""`
		Folders []xmlFolderSummary `xml:"folder"`
	}{
		XMLName: xml.Name{Local: xmlSummariesName},
		Folders: make([]xmlFolderSummary, 0, len(entries)),
	}
	for _, entry := range entries {
		wrapper.Folders = append(wrapper.Folders, xmlFolderSummary{Key: entry.Key, Summary: entry.Summary})
	}
	encoded, xmlMarshalError := xml.MarshalIndent(wrapper, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded), nil
}

// RenderSummaryRaw lists every folder key followed by its summary.
func RenderSummaryRaw(flattened types.FlattenedSummaryMap) string {
	var buffer bytes.Buffer
	for _, entry := range flattened.Entries() {
		buffer.WriteString(fmt.Sprintf(rawFolderHeaderFormat, entry.Key))
		if entry.Summary == nil {
			buffer.WriteString(rawMissingSummary + "\n")
		} else {
			buffer.WriteString(*entry.Summary + "\n")
		}
		buffer.WriteString(separatorLine + "\n")
	}
	return buffer.String()
}

// RenderSummary renders the flattened map in format.
func RenderSummary(format string, flattened types.FlattenedSummaryMap) (string, error) {
	switch strings.ToLower(format) {
	case types.FormatJSON:
		return RenderSummaryJSON(flattened)
	case types.FormatXML:
		return RenderSummaryXML(flattened)
	case types.FormatRaw:
		return RenderSummaryRaw(flattened), nil
	default:
		return "", fmt.Errorf(errorUnsupportedFormat, format)
	}
}

// WriteGlobalSummary prints the root summary under its banner.
func WriteGlobalSummary(writer io.Writer, summary string) {
	fmt.Fprintf(writer, "\n%s\n\n%s\n", globalSummaryTitle, summary)
}

// RenderTreeJSON marshals a tree as indented JSON.
func RenderTreeJSON(node *types.TreeOutputNode) (string, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent(indentPrefix, indentSpacer)
	if encodeError := encoder.Encode(node); encodeError != nil {
		return "", encodeError
	}
	return strings.TrimRight(buffer.String(), "\n"), nil
}

// RenderTreeXML marshals a tree as an XML document.
func RenderTreeXML(node *types.TreeOutputNode) (string, error) {
	encoded, xmlMarshalError := xml.MarshalIndent(node, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded), nil
}

// RenderTree renders a tree in format; raw output uses box-drawing connectors.
func RenderTree(format string, node *types.TreeOutputNode, includeSummary bool) (string, error) {
	switch strings.ToLower(format) {
	case types.FormatJSON:
		return RenderTreeJSON(node)
	case types.FormatXML:
		return RenderTreeXML(node)
	case types.FormatRaw:
		var buffer bytes.Buffer
		WriteTreeRaw(&buffer, node, includeSummary)
		return buffer.String(), nil
	default:
		return "", fmt.Errorf(errorUnsupportedFormat, format)
	}
}

// WriteTreeRaw renders a directory tree to the provided writer.
func WriteTreeRaw(writer io.Writer, node *types.TreeOutputNode, includeSummary bool) {
	if node == nil {
		return
	}
	renderTreeNode(writer, node, "", includeSummary, true, true)
}

func directorySummaryLine(node *types.TreeOutputNode, includeSummary bool) string {
	if !includeSummary || node == nil || node.Type != types.NodeTypeDirectory {
		return ""
	}
	label := "files"
	if node.TotalFiles == 1 {
		label = "file"
	}
	return fmt.Sprintf(directorySummaryFormat, node.TotalFiles, label)
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

func renderTreeNode(writer io.Writer, node *types.TreeOutputNode, prefix string, includeSummary bool, isRoot bool, isLast bool) {
	if node == nil {
		return
	}
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	if node.Type == types.NodeTypeFile {
		switch {
		case node.ContentState == types.ContentStatePlaceholder:
			fmt.Fprintf(writer, treePlaceholderFormat, linePrefix, node.Name)
		case node.Language != "":
			fmt.Fprintf(writer, treeLanguageFileFormat, linePrefix, node.Name, node.Language)
		default:
			fmt.Fprintf(writer, treeFileFormat, linePrefix, node.Name)
		}
		return
	}
	if isRoot {
		fmt.Fprintf(writer, "%s\n", node.Path)
	} else {
		fmt.Fprintf(writer, "%s%s\n", linePrefix, node.Name)
	}
	summaryLine := directorySummaryLine(node, includeSummary)
	if summaryLine != "" {
		if isRoot {
			fmt.Fprintf(writer, "%s\n", summaryLine)
		} else {
			fmt.Fprintf(writer, "%s%s\n", childPrefix, summaryLine)
		}
	}
	for index, child := range node.Children {
		if child == nil {
			continue
		}
		renderTreeNode(writer, child, childPrefix, includeSummary, false, index == len(node.Children)-1)
	}
}
