package output_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reposum/internal/output"
	"github.com/temirov/reposum/internal/types"
)

func sampleFlattened() types.FlattenedSummaryMap {
	rootSummary := "Folder 'demo' summary:\nTop <level> & more"
	childSummary := "Folder 'pkg' summary:\nHelpers"
	var flattened types.FlattenedSummaryMap
	flattened.Add("demo", &rootSummary)
	flattened.Add("demo > pkg", &childSummary)
	flattened.Add("demo > pkg > empty", nil)
	return flattened
}

// summaryJSONExpected keeps traversal order and leaves markup unescaped.
const summaryJSONExpected = "{\n" +
	"  \"demo\": \"Folder 'demo' summary:\\nTop <level> & more\",\n" +
	"  \"demo > pkg\": \"Folder 'pkg' summary:\\nHelpers\",\n" +
	"  \"demo > pkg > empty\": null\n" +
	"}"

func TestRenderSummaryJSON(testingInstance *testing.T) {
	actual, err := output.RenderSummaryJSON(sampleFlattened())
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance, summaryJSONExpected, actual)
}

func TestRenderSummaryJSONEmpty(testingInstance *testing.T) {
	actual, err := output.RenderSummaryJSON(types.FlattenedSummaryMap{})
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance, "{}", actual)
}

const summaryXMLExpected = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
	"<summaries>\n" +
	"  <folder key=\"demo\">\n" +
	"    <summary>Folder &#39;demo&#39; summary:&#xA;Top &lt;level&gt; &amp; more</summary>\n" +
	"  </folder>\n" +
	"  <folder key=\"demo &gt; pkg\">\n" +
	"    <summary>Folder &#39;pkg&#39; summary:&#xA;Helpers</summary>\n" +
	"  </folder>\n" +
	"  <folder key=\"demo &gt; pkg &gt; empty\"></folder>\n" +
	"</summaries>"

func TestRenderSummaryXML(testingInstance *testing.T) {
	actual, err := output.RenderSummaryXML(sampleFlattened())
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance, summaryXMLExpected, actual)
}

func TestRenderSummaryRaw(testingInstance *testing.T) {
	actual, err := output.RenderSummary(types.FormatRaw, sampleFlattened())
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance,
		"=== demo ===\nFolder 'demo' summary:\nTop <level> & more\n----------------------------------------\n"+
			"=== demo > pkg ===\nFolder 'pkg' summary:\nHelpers\n----------------------------------------\n"+
			"=== demo > pkg > empty ===\n(no summary)\n----------------------------------------\n",
		actual)
}

func TestRenderSummaryUnsupportedFormat(testingInstance *testing.T) {
	_, err := output.RenderSummary("yaml", sampleFlattened())
	assert.ErrorContains(testingInstance, err, "unsupported output format")
}

func TestWriteGlobalSummary(testingInstance *testing.T) {
	var buffer bytes.Buffer
	output.WriteGlobalSummary(&buffer, "All good.")
	assert.Equal(testingInstance, "\n===== GLOBAL SUMMARY =====\n\nAll good.\n", buffer.String())
}

func sampleTree() *types.TreeOutputNode {
	return &types.TreeOutputNode{
		Path:       "/work/demo",
		Name:       "demo",
		Type:       types.NodeTypeDirectory,
		TotalFiles: 3,
		Children: []*types.TreeOutputNode{
			{
				Path:       "/work/demo/pkg",
				Name:       "pkg",
				Type:       types.NodeTypeDirectory,
				TotalFiles: 1,
				Children: []*types.TreeOutputNode{
					{Path: "/work/demo/pkg/util.go", Name: "util.go", Type: types.NodeTypeFile, ContentState: types.ContentStateRead, Language: "go"},
				},
			},
			{Path: "/work/demo/README.md", Name: "README.md", Type: types.NodeTypeFile, ContentState: types.ContentStateRead},
			{Path: "/work/demo/logo.png", Name: "logo.png", Type: types.NodeTypeFile, ContentState: types.ContentStatePlaceholder},
		},
	}
}

func TestRenderTreeRaw(testingInstance *testing.T) {
	actual, err := output.RenderTree(types.FormatRaw, sampleTree(), true)
	require.NoError(testingInstance, err)
	expected := "/work/demo\n" +
		"Summary: 3 files\n" +
		"├── pkg\n" +
		"│   Summary: 1 file\n" +
		"│   └── [File] util.go (go)\n" +
		"├── [File] README.md\n" +
		"└── [File] logo.png (name only)\n"
	assert.Equal(testingInstance, expected, actual)
}

func TestRenderTreeJSONAndXML(testingInstance *testing.T) {
	jsonOutput, err := output.RenderTree(types.FormatJSON, sampleTree(), false)
	require.NoError(testingInstance, err)
	assert.Contains(testingInstance, jsonOutput, "\"content\": \"placeholder\"")
	assert.Contains(testingInstance, jsonOutput, "\"totalFiles\": 3")

	xmlOutput, err := output.RenderTree(types.FormatXML, sampleTree(), false)
	require.NoError(testingInstance, err)
	assert.True(testingInstance, strings.HasPrefix(xmlOutput, "<?xml"))
	assert.Contains(testingInstance, xmlOutput, "<language>go</language>")
}

func TestArtifactNames(testingInstance *testing.T) {
	summaryName, treeName := output.ArtifactNames("demo", types.FormatJSON, "")
	assert.Equal(testingInstance, "summary_demo.txt", summaryName)
	assert.Equal(testingInstance, "summary_tree_demo.json", treeName)

	summaryName, treeName = output.ArtifactNames("demo", types.FormatXML, "20240102_030405")
	assert.Equal(testingInstance, "demo_summary_20240102_030405.txt", summaryName)
	assert.Equal(testingInstance, "demo_summary_tree_20240102_030405.xml", treeName)
}

func TestArtifactWriterWritesBothFiles(testingInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	writer := &output.ArtifactWriter{Fs: fileSystem, Directory: "/out/summaries"}

	artifacts, err := writer.Write("demo", "global text", sampleFlattened())
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance, "/out/summaries/summary_demo.txt", artifacts.SummaryPath)
	assert.Equal(testingInstance, "/out/summaries/summary_tree_demo.json", artifacts.TreePath)

	summaryBody, err := afero.ReadFile(fileSystem, artifacts.SummaryPath)
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance, "global text", string(summaryBody))
	treeBody, err := afero.ReadFile(fileSystem, artifacts.TreePath)
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance, summaryJSONExpected, string(treeBody))
}

func TestArtifactWriterTimestamp(testingInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	fixedTime := time.Date(2024, time.March, 4, 5, 6, 7, 0, time.Local)
	writer := &output.ArtifactWriter{
		Fs:        fileSystem,
		Directory: "/out",
		Format:    types.FormatRaw,
		Timestamp: true,
		Now:       func() time.Time { return fixedTime },
	}
	artifacts, err := writer.Write("demo", "g", sampleFlattened())
	require.NoError(testingInstance, err)
	assert.Equal(testingInstance, "/out/demo_summary_20240304_050607.txt", artifacts.SummaryPath)
	assert.Equal(testingInstance, "/out/demo_summary_tree_20240304_050607.txt", artifacts.TreePath)
	exists, err := afero.Exists(fileSystem, artifacts.TreePath)
	require.NoError(testingInstance, err)
	assert.True(testingInstance, exists)
}
