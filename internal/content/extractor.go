// Package content reads file bodies as text for summarization.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
)

const (
	notebookExtension = ".ipynb"

	cellTypeCode     = "code"
	cellTypeMarkdown = "markdown"

	codeCellFormat      = "```python\n%s\n```\n"
	markdownCellSuffix  = "\n"
	notebookCellJoiner  = "\n"
	readErrorFormat     = "<Error reading file: %v>"
	notebookErrorFormat = "<Error processing ipynb file: %v>"
)

// Extractor reads file content through an afero filesystem.
type Extractor struct {
	Fs afero.Fs
}

// NewExtractor returns an Extractor over fileSystem; nil selects the operating system filesystem.
func NewExtractor(fileSystem afero.Fs) *Extractor {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return &Extractor{Fs: fileSystem}
}

// ReadFileContent returns the text of the file at path. Undecodable byte sequences are replaced
// with U+FFFD. Notebooks are reduced to their code and markdown cells. Failures never propagate:
// they are returned as an inline error marker in place of the content.
func (extractor *Extractor) ReadFileContent(path string) string {
	fileSystem := extractor.Fs
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	rawBytes, readError := afero.ReadFile(fileSystem, path)
	if readError != nil {
		return fmt.Sprintf(readErrorFormat, readError)
	}
	decodedBytes, decodeError := unicode.UTF8.NewDecoder().Bytes(rawBytes)
	if decodeError != nil {
		return fmt.Sprintf(readErrorFormat, decodeError)
	}
	text := string(decodedBytes)

	if strings.ToLower(filepath.Ext(path)) != notebookExtension {
		return text
	}
	notebookText, notebookError := RenderNotebook(decodedBytes)
	if notebookError != nil {
		return fmt.Sprintf(notebookErrorFormat, notebookError)
	}
	return notebookText
}

type notebookDocument struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string         `json:"cell_type"`
	Source   notebookSource `json:"source"`
}

// notebookSource accepts both encodings of a cell body: a single string or a list of lines.
type notebookSource string

func (source *notebookSource) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*source = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var single string
		if unmarshalError := json.Unmarshal(trimmed, &single); unmarshalError != nil {
			return unmarshalError
		}
		*source = notebookSource(single)
		return nil
	}
	var lines []string
	if unmarshalError := json.Unmarshal(trimmed, &lines); unmarshalError != nil {
		return unmarshalError
	}
	*source = notebookSource(strings.Join(lines, ""))
	return nil
}

// RenderNotebook keeps the code and markdown cells of a notebook document in their original order.
func RenderNotebook(document []byte) (string, error) {
	var notebook notebookDocument
	if unmarshalError := json.Unmarshal(document, &notebook); unmarshalError != nil {
		return "", unmarshalError
	}
	renderedCells := make([]string, 0, len(notebook.Cells))
	for _, cell := range notebook.Cells {
		switch cell.CellType {
		case cellTypeCode:
			renderedCells = append(renderedCells, fmt.Sprintf(codeCellFormat, string(cell.Source)))
		case cellTypeMarkdown:
			renderedCells = append(renderedCells, string(cell.Source)+markdownCellSuffix)
		}
	}
	return strings.Join(renderedCells, notebookCellJoiner), nil
}
