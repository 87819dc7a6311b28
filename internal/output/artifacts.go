package output

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/reposum/internal/types"
	"github.com/temirov/reposum/internal/utils"
)

const (
	summaryFileFormat            = "summary_%s.txt"
	summaryTreeFileFormat        = "summary_tree_%s%s"
	timestampedSummaryFormat     = "%s_summary_%s.txt"
	timestampedSummaryTreeFormat = "%s_summary_tree_%s%s"

	errorCreateOutputDirFormat = "create output directory %s: %w"
	errorWriteArtifactFormat   = "write %s: %w"

	logMessageArtifactWritten = "wrote artifact"
)

var treeFileExtensions = map[string]string{
	types.FormatJSON: ".json",
	types.FormatXML:  ".xml",
	types.FormatRaw:  ".txt",
}

// Artifacts names the files written for one run.
type Artifacts struct {
	SummaryPath string
	TreePath    string
}

// ArtifactWriter persists the global summary and the rendered flattened tree of a run.
type ArtifactWriter struct {
	Fs        afero.Fs
	Directory string
	Format    string
	Timestamp bool
	Now       func() time.Time
	Logger    *zap.Logger
}

// ArtifactNames returns the summary and tree file names for name. Timestamped names embed
// stamp after the repository name.
func ArtifactNames(name string, format string, stamp string) (string, string) {
	extension, known := treeFileExtensions[format]
	if !known {
		extension = treeFileExtensions[types.FormatJSON]
	}
	if stamp == "" {
		return fmt.Sprintf(summaryFileFormat, name), fmt.Sprintf(summaryTreeFileFormat, name, extension)
	}
	return fmt.Sprintf(timestampedSummaryFormat, name, stamp), fmt.Sprintf(timestampedSummaryTreeFormat, name, stamp, extension)
}

// Write renders flattened in the writer's format and stores it next to the global summary.
func (writer *ArtifactWriter) Write(name string, globalSummary string, flattened types.FlattenedSummaryMap) (Artifacts, error) {
	fileSystem := writer.Fs
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	format := writer.Format
	if format == "" {
		format = types.FormatJSON
	}
	renderedTree, renderError := RenderSummary(format, flattened)
	if renderError != nil {
		return Artifacts{}, renderError
	}

	stamp := ""
	if writer.Timestamp {
		now := time.Now
		if writer.Now != nil {
			now = writer.Now
		}
		stamp = utils.FormatArtifactTimestamp(now())
	}
	summaryName, treeName := ArtifactNames(name, format, stamp)

	if makeDirError := fileSystem.MkdirAll(writer.Directory, 0o755); makeDirError != nil {
		return Artifacts{}, fmt.Errorf(errorCreateOutputDirFormat, writer.Directory, makeDirError)
	}
	artifacts := Artifacts{
		SummaryPath: filepath.Join(writer.Directory, summaryName),
		TreePath:    filepath.Join(writer.Directory, treeName),
	}
	logger := utils.LoggerOrNop(writer.Logger)
	for _, artifact := range []struct{ path, body string }{
		{path: artifacts.SummaryPath, body: globalSummary},
		{path: artifacts.TreePath, body: renderedTree},
	} {
		if writeError := afero.WriteFile(fileSystem, artifact.path, []byte(artifact.body), 0o644); writeError != nil {
			return Artifacts{}, fmt.Errorf(errorWriteArtifactFormat, artifact.path, writeError)
		}
		logger.Info(logMessageArtifactWritten,
			zap.String("path", artifact.path),
			zap.String("size", utils.FormatFileSize(int64(len(artifact.body)))))
	}
	return artifacts, nil
}
