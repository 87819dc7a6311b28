package aggregator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/reposum/internal/aggregator"
	"github.com/temirov/reposum/internal/commands"
	"github.com/temirov/reposum/internal/content"
	"github.com/temirov/reposum/internal/exclusion"
	"github.com/temirov/reposum/internal/summarizer"
	"github.com/temirov/reposum/internal/types"
)

const repositoryRoot = "/root"

// recordingSummarizer remembers every text it receives and answers with respond.
type recordingSummarizer struct {
	mutex   sync.Mutex
	texts   []string
	respond func(text string) string
}

func (recording *recordingSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	recording.mutex.Lock()
	defer recording.mutex.Unlock()
	recording.texts = append(recording.texts, text)
	if recording.respond == nil {
		return text, nil
	}
	return recording.respond(text), nil
}

func (recording *recordingSummarizer) calls() []string {
	recording.mutex.Lock()
	defer recording.mutex.Unlock()
	return append([]string(nil), recording.texts...)
}

func wordCountResponse(text string) string {
	return fmt.Sprintf("%d words", aggregator.CountWords(text))
}

func repeatedWords(count int) string {
	words := make([]string, count)
	for index := range words {
		words[index] = fmt.Sprintf("w%d", index)
	}
	return strings.Join(words, " ")
}

func newFixture(testingHandle *testing.T, files map[string]string) afero.Fs {
	testingHandle.Helper()
	fileSystem := afero.NewMemMapFs()
	for relativePath, body := range files {
		fullPath := filepath.Join(repositoryRoot, relativePath)
		require.NoError(testingHandle, fileSystem.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(testingHandle, afero.WriteFile(fileSystem, fullPath, []byte(body), 0o644))
	}
	return fileSystem
}

func buildTree(testingHandle *testing.T, fileSystem afero.Fs) *types.FolderNode {
	testingHandle.Helper()
	root, err := commands.NewTreeBuilder(fileSystem, nil, nil).BuildRootTree(repositoryRoot, nil)
	require.NoError(testingHandle, err)
	return root
}

func newAggregator(fileSystem afero.Fs, backend summarizer.Summarizer, logger *zap.Logger, options aggregator.Options) *aggregator.Aggregator {
	return aggregator.New(backend, content.NewExtractor(fileSystem), exclusion.NewDefaultPolicy(), logger, options)
}

func TestSummarizeFolderPlaceholderOnlyFolder(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{
		"logo.png": "RAW PNG BYTES",
		"data.csv": "RAW,CSV,ROWS",
	})
	root := buildTree(testingHandle, fileSystem)
	echo := &recordingSummarizer{}
	summaries := types.NewSummaries()

	summary, err := newAggregator(fileSystem, echo, nil, aggregator.DefaultOptions()).SummarizeFolder(context.Background(), root, summaries)
	require.NoError(testingHandle, err)

	assert.Contains(testingHandle, summary, exclusion.Placeholder("logo.png"))
	assert.Contains(testingHandle, summary, exclusion.Placeholder("data.csv"))
	assert.NotContains(testingHandle, summary, "RAW PNG BYTES")
	assert.NotContains(testingHandle, summary, "RAW,CSV,ROWS")

	recorded, exists := summaries.Lookup(types.RootRelativePath)
	require.True(testingHandle, exists)
	assert.Equal(testingHandle, "Folder 'root' summary:\n"+summary, recorded)
}

func TestSummarizeFolderCombinedTextLayout(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{
		"main.py":        "print('hi')",
		"README.md":      "# Title",
		"lib/helper.go":  "package lib",
		"lib/notes.json": "{}",
	})
	root := buildTree(testingHandle, fileSystem)
	backend := &recordingSummarizer{respond: func(text string) string { return "S" }}

	_, err := newAggregator(fileSystem, backend, nil, aggregator.DefaultOptions()).SummarizeFolder(context.Background(), root, types.NewSummaries())
	require.NoError(testingHandle, err)

	calls := backend.calls()
	require.Len(testingHandle, calls, 2)
	assert.Equal(testingHandle,
		"--- helper.go ---\n```go\npackage lib\n```\n\n--- notes.json ---\n"+exclusion.Placeholder("notes.json")+"\n\n",
		calls[0])
	assert.Equal(testingHandle,
		"--- README.md ---\n```\n# Title\n```\n\n--- main.py ---\n```python\nprint('hi')\n```\n\n\n### Subfolder 'lib' ---\nS\n",
		calls[1])
}

func TestSummarizeFolderLargeBranchDropsSubfolderRollups(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{
		"big.py":         repeatedWords(20001),
		"small.py":       "print('small')",
		"image.png":      "png",
		"child/child.py": "print('child')",
	})
	root := buildTree(testingHandle, fileSystem)
	backend := &recordingSummarizer{respond: wordCountResponse}
	observedCore, observedLogs := observer.New(zap.InfoLevel)

	result, err := newAggregator(fileSystem, backend, zap.New(observedCore), aggregator.DefaultOptions()).Run(context.Background(), root)
	require.NoError(testingHandle, err)

	calls := backend.calls()
	folderCall := calls[len(calls)-1]
	assert.NotContains(testingHandle, folderCall, "### Subfolder")
	assert.Contains(testingHandle, folderCall, "--- big.py ---\nChunk 1 summary: ")
	assert.Contains(testingHandle, folderCall, "--- image.png ---\n"+exclusion.Placeholder("image.png")+"\n")
	assert.Contains(testingHandle, folderCall, "--- small.py ---\n1 words\n")
	for _, call := range calls {
		assert.LessOrEqual(testingHandle, aggregator.CountWords(call), aggregator.DefaultFileWordThreshold)
	}

	assert.Equal(testingHandle, 2, result.Summaries.Len())
	assert.Equal(testingHandle, 1, observedLogs.FilterMessage("folder exceeds word threshold; subfolder summaries dropped from its summary").Len())
	progress := observedLogs.FilterMessage("summarized folder").All()
	require.Len(testingHandle, progress, 2)
	assert.Equal(testingHandle, "child", progress[0].ContextMap()["name"])
	assert.Equal(testingHandle, "per-file", progress[1].ContextMap()["branch"])
}

func TestSummarizeFolderAtThresholdKeepsRollups(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{
		"a.py":     repeatedWords(10),
		"sub/b.py": "x",
	})
	root := buildTree(testingHandle, fileSystem)
	backend := &recordingSummarizer{respond: func(string) string { return "child summary" }}
	options := aggregator.DefaultOptions()
	options.FolderWordThreshold = 21

	_, err := newAggregator(fileSystem, backend, nil, options).Run(context.Background(), root)
	require.NoError(testingHandle, err)
	calls := backend.calls()
	require.Len(testingHandle, calls, 2)
	assert.Equal(testingHandle, 21, aggregator.CountWords(calls[1]))
	assert.Contains(testingHandle, calls[1], "### Subfolder 'sub' ---\nchild summary\n")
}

func TestFlattenThreeLevelTree(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{
		"top.py":      "top",
		"A/middle.py": "middle",
		"A/B/leaf.py": "leaf",
	})
	root := buildTree(testingHandle, fileSystem)
	result, err := newAggregator(fileSystem, &recordingSummarizer{respond: wordCountResponse}, nil, aggregator.DefaultOptions()).Run(context.Background(), root)
	require.NoError(testingHandle, err)

	flattened := commands.Flatten(root, result.Summaries, "")
	assert.Equal(testingHandle, []string{"root", "root > A", "root > A > B"}, flattened.Keys())
	for key, relativePath := range map[string]string{"root": ".", "root > A": "A", "root > A > B": "A/B"} {
		value, exists := flattened.Get(key)
		require.True(testingHandle, exists)
		require.NotNil(testingHandle, value)
		recorded, _ := result.Summaries.Lookup(relativePath)
		assert.Equal(testingHandle, recorded, *value)
	}
	rootSummary, _ := flattened.Get("root")
	assert.Equal(testingHandle, "Folder 'root' summary:\n"+result.Global, *rootSummary)
}

func TestRunIsIdempotent(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{
		"main.go":             "package main\nfunc main() {}",
		"pkg/util/strings.go": "package util",
		"pkg/util/table.csv":  "a,b",
		"docs/intro.md":       "hello world",
		"notebook.ipynb":      `{"cells":[{"cell_type":"code","source":["x = 1"]}]}`,
	})
	run := func() []byte {
		root := buildTree(testingHandle, fileSystem)
		result, err := newAggregator(fileSystem, &recordingSummarizer{respond: wordCountResponse}, nil, aggregator.DefaultOptions()).Run(context.Background(), root)
		require.NoError(testingHandle, err)
		encoded, err := json.Marshal(commands.Flatten(root, result.Summaries, ""))
		require.NoError(testingHandle, err)
		return encoded
	}
	assert.Equal(testingHandle, string(run()), string(run()))
}

func TestConcurrentRunMatchesSequentialRun(testingHandle *testing.T) {
	files := map[string]string{}
	for folderIndex := 0; folderIndex < 6; folderIndex++ {
		for fileIndex := 0; fileIndex < 3; fileIndex++ {
			files[fmt.Sprintf("f%d/nested/file%d.py", folderIndex, fileIndex)] = repeatedWords(folderIndex + fileIndex + 1)
		}
		files[fmt.Sprintf("f%d/big.py", folderIndex)] = repeatedWords(60)
	}
	fileSystem := newFixture(testingHandle, files)

	run := func(concurrency int) (string, []byte) {
		root := buildTree(testingHandle, fileSystem)
		options := aggregator.DefaultOptions()
		options.Concurrency = concurrency
		options.FolderWordThreshold = 40
		options.FileWordThreshold = 25
		options.ChunkSize = 10
		options.ChunkContext = 2
		result, err := newAggregator(fileSystem, &recordingSummarizer{respond: wordCountResponse}, nil, options).Run(context.Background(), root)
		require.NoError(testingHandle, err)
		encoded, err := json.Marshal(commands.Flatten(root, result.Summaries, ""))
		require.NoError(testingHandle, err)
		return result.Global, encoded
	}
	sequentialGlobal, sequentialTree := run(1)
	concurrentGlobal, concurrentTree := run(4)
	assert.Equal(testingHandle, sequentialGlobal, concurrentGlobal)
	assert.Equal(testingHandle, string(sequentialTree), string(concurrentTree))
}

func TestSummarizeFileChunksLargeFiles(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{"long.py": repeatedWords(25)})
	options := aggregator.DefaultOptions()
	options.FileWordThreshold = 10
	options.ChunkSize = 10
	options.ChunkContext = 2

	summary, err := newAggregator(fileSystem, &recordingSummarizer{respond: wordCountResponse}, nil, options).
		SummarizeFile(context.Background(), filepath.Join(repositoryRoot, "long.py"))
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, "Chunk 1 summary: 12 words\nChunk 2 summary: 14 words\nChunk 3 summary: 7 words", summary)
}

func TestSummarizeFileSmallFileIsOneCall(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{"short.py": "def f():\n    return 1\n"})
	backend := &recordingSummarizer{}
	summary, err := newAggregator(fileSystem, backend, nil, aggregator.DefaultOptions()).
		SummarizeFile(context.Background(), filepath.Join(repositoryRoot, "short.py"))
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, "def f():\n    return 1\n", summary)
	assert.Len(testingHandle, backend.calls(), 1)
}

func TestSummarizeFileIneligibleSkipsRead(testingHandle *testing.T) {
	backend := &recordingSummarizer{}
	summary, err := newAggregator(afero.NewMemMapFs(), backend, nil, aggregator.DefaultOptions()).
		SummarizeFile(context.Background(), "/missing/report.pdf")
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, exclusion.Placeholder("report.pdf"), summary)
	assert.Empty(testingHandle, backend.calls())
}

func TestSummarizeFileReducesChunkSummaries(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{"long.py": repeatedWords(30)})
	options := aggregator.DefaultOptions()
	options.FileWordThreshold = 5
	options.ChunkSize = 5
	options.ChunkContext = 0
	path := filepath.Join(repositoryRoot, "long.py")
	constant := func(string) string { return "x" }

	flatBackend := &recordingSummarizer{respond: constant}
	flat, err := newAggregator(fileSystem, flatBackend, nil, options).SummarizeFile(context.Background(), path)
	require.NoError(testingHandle, err)
	assert.Len(testingHandle, strings.Split(flat, "\n"), 6)
	assert.Len(testingHandle, flatBackend.calls(), 6)

	options.ReduceChunkSummaries = true
	reducingBackend := &recordingSummarizer{respond: constant}
	reduced, err := newAggregator(fileSystem, reducingBackend, nil, options).SummarizeFile(context.Background(), path)
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, "Chunk 1 summary: x\nChunk 2 summary: x\nChunk 3 summary: x\nChunk 4 summary: x", reduced)
	assert.Len(testingHandle, reducingBackend.calls(), 6+5+4+4)
}

func TestSummarizationErrorAbortsRun(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{
		"a/one.py": "one",
		"b/two.py": "two",
		"root.py":  "root",
	})
	root := buildTree(testingHandle, fileSystem)
	backendError := errors.New("rate limited")
	calls := 0
	failing := summarizer.Func(func(ctx context.Context, text string) (string, error) {
		calls++
		return "", &summarizer.SummarizationError{Provider: "stub", Model: "stub", Err: backendError}
	})

	result, err := newAggregator(fileSystem, failing, nil, aggregator.DefaultOptions()).Run(context.Background(), root)
	require.Error(testingHandle, err)
	var summarizationError *summarizer.SummarizationError
	assert.ErrorAs(testingHandle, err, &summarizationError)
	assert.ErrorIs(testingHandle, err, backendError)
	assert.Equal(testingHandle, 1, calls)
	assert.Nil(testingHandle, result.Summaries)
}

func TestRunHonorsCancellation(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{"a/one.py": "one", "b/two.py": "two"})
	root := buildTree(testingHandle, fileSystem)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, concurrency := range []int{1, 3} {
		options := aggregator.DefaultOptions()
		options.Concurrency = concurrency
		_, err := newAggregator(fileSystem, &recordingSummarizer{}, nil, options).Run(ctx, root)
		assert.ErrorIs(testingHandle, err, context.Canceled)
	}
}

func TestProgressLogLevel(testingHandle *testing.T) {
	fileSystem := newFixture(testingHandle, map[string]string{"main.py": "x"})
	observedCore, observedLogs := observer.New(zap.InfoLevel)
	_, err := newAggregator(fileSystem, &recordingSummarizer{}, zap.New(observedCore), aggregator.DefaultOptions()).
		Run(context.Background(), buildTree(testingHandle, fileSystem))
	require.NoError(testingHandle, err)
	entries := observedLogs.FilterMessage("summarized folder").All()
	require.Len(testingHandle, entries, 1)
	assert.Equal(testingHandle, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(testingHandle, "combined", entries[0].ContextMap()["branch"])
	assert.EqualValues(testingHandle, 6, entries[0].ContextMap()["words"])
}
