// Package aggregator summarizes a folder tree bottom-up, folding each folder's file content and
// subfolder summaries into one summary per folder.
package aggregator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/temirov/reposum/internal/chunker"
	"github.com/temirov/reposum/internal/content"
	"github.com/temirov/reposum/internal/exclusion"
	"github.com/temirov/reposum/internal/summarizer"
	"github.com/temirov/reposum/internal/types"
)

const (
	subfolderRollupFormat = "\n### Subfolder '%s' ---\n%s\n"
	fileHeaderFormat      = "--- %s ---\n"
	taggedBlockFormat     = "```%s\n%s\n```\n"
	untaggedBlockFormat   = "```\n%s\n```\n"
	fileSummaryFormat     = "--- %s ---\n%s\n"
	chunkSummaryFormat    = "Chunk %d summary: %s"
	folderSummaryFormat   = "Folder '%s' summary:\n%s"

	branchCombined = "combined"
	branchPerFile  = "per-file"

	errorSummarizeFolderFormat = "summarize folder %s: %w"
	errorSummarizeFileFormat   = "summarize file %s: %w"
	errorRecordSummaryFormat   = "record summary for %s: %w"

	logMessageFolderSummarized  = "summarized folder"
	logMessageRollupsDropped    = "folder exceeds word threshold; subfolder summaries dropped from its summary"
	logMessageFileChunked       = "file exceeds word threshold; summarizing in chunks"
	logMessageReducingSummaries = "chunk summaries exceed word threshold; reducing"
)

// RunResult holds the root summary and every recorded folder summary.
type RunResult struct {
	Global    string
	Summaries *types.Summaries
}

// Aggregator walks a folder tree and summarizes it through a Summarizer. All Summarizer calls
// are bounded by Options.Concurrency.
type Aggregator struct {
	summarizer summarizer.Summarizer
	extractor  *content.Extractor
	policy     *exclusion.Policy
	logger     *zap.Logger
	options    Options
	limiter    *semaphore.Weighted
}

// New constructs an Aggregator. Nil extractor, policy, and logger select the defaults.
func New(backend summarizer.Summarizer, extractor *content.Extractor, policy *exclusion.Policy, logger *zap.Logger, options Options) *Aggregator {
	if extractor == nil {
		extractor = content.NewExtractor(nil)
	}
	if policy == nil {
		policy = exclusion.NewDefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	options = options.normalized()
	return &Aggregator{
		summarizer: backend,
		extractor:  extractor,
		policy:     policy,
		logger:     logger,
		options:    options,
		limiter:    semaphore.NewWeighted(int64(options.Concurrency)),
	}
}

// Run summarizes the whole tree under root.
func (aggregator *Aggregator) Run(ctx context.Context, root *types.FolderNode) (RunResult, error) {
	summaries := types.NewSummaries()
	global, err := aggregator.SummarizeFolder(ctx, root, summaries)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Global: global, Summaries: summaries}, nil
}

// SummarizeFolder summarizes node after all of its subfolders, records the header-formatted
// summary in summaries, and returns the bare summary for the parent's rollup.
func (aggregator *Aggregator) SummarizeFolder(ctx context.Context, node *types.FolderNode, summaries *types.Summaries) (string, error) {
	subfolderSummaries, subfolderError := aggregator.mapOrdered(ctx, len(node.Subfolders), func(groupContext context.Context, index int) (string, error) {
		return aggregator.SummarizeFolder(groupContext, node.Subfolders[index], summaries)
	})
	if subfolderError != nil {
		return "", subfolderError
	}

	var aggregatedSubfolderText strings.Builder
	for index, subfolder := range node.Subfolders {
		aggregatedSubfolderText.WriteString(fmt.Sprintf(subfolderRollupFormat, subfolder.Name, subfolderSummaries[index]))
	}

	fileBlocks := make([]string, 0, len(node.Files))
	for _, fileName := range node.Files {
		fileBlocks = append(fileBlocks, aggregator.fileBlock(node, fileName))
	}
	combinedRawText := strings.Join(fileBlocks, "\n") + "\n" + aggregatedSubfolderText.String()
	totalWords := CountWords(combinedRawText)

	branch := branchCombined
	textToSummarize := combinedRawText
	if totalWords > aggregator.options.FolderWordThreshold {
		branch = branchPerFile
		if len(node.Subfolders) > 0 {
			aggregator.logger.Warn(logMessageRollupsDropped,
				zap.String("path", node.RelativePath),
				zap.Int("words", totalWords),
				zap.Strings("subfolders", subfolderNames(node)))
		}
		fileSummaries, fileError := aggregator.mapOrdered(ctx, len(node.Files), func(groupContext context.Context, index int) (string, error) {
			fileName := node.Files[index]
			fileSummary, err := aggregator.SummarizeFile(groupContext, filepath.Join(node.Path, fileName))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf(fileSummaryFormat, fileName, fileSummary), nil
		})
		if fileError != nil {
			return "", fmt.Errorf(errorSummarizeFolderFormat, node.RelativePath, fileError)
		}
		textToSummarize = strings.Join(fileSummaries, "\n")
	}

	summary, summarizeError := aggregator.summarize(ctx, textToSummarize)
	if summarizeError != nil {
		return "", fmt.Errorf(errorSummarizeFolderFormat, node.RelativePath, summarizeError)
	}
	if recordError := summaries.Record(node.RelativePath, fmt.Sprintf(folderSummaryFormat, node.Name, summary)); recordError != nil {
		return "", fmt.Errorf(errorRecordSummaryFormat, node.RelativePath, recordError)
	}
	aggregator.logger.Info(logMessageFolderSummarized,
		zap.String("name", node.Name),
		zap.String("path", node.RelativePath),
		zap.Int("words", totalWords),
		zap.String("branch", branch))
	return summary, nil
}

// SummarizeFile summarizes one file. Content-ineligible files yield their placeholder without
// being read; files above the word threshold are summarized chunk by chunk.
func (aggregator *Aggregator) SummarizeFile(ctx context.Context, path string) (string, error) {
	fileName := filepath.Base(path)
	if !aggregator.policy.ShouldProcessFileContent(fileName) {
		return exclusion.Placeholder(fileName), nil
	}

	fileContent := aggregator.extractor.ReadFileContent(path)
	words := strings.Fields(fileContent)
	if len(words) <= aggregator.options.FileWordThreshold {
		summary, err := aggregator.summarize(ctx, fileContent)
		if err != nil {
			return "", fmt.Errorf(errorSummarizeFileFormat, path, err)
		}
		return summary, nil
	}

	aggregator.logger.Info(logMessageFileChunked, zap.String("path", path), zap.Int("words", len(words)))
	joined, err := aggregator.summarizeChunks(ctx, words)
	if err != nil {
		return "", fmt.Errorf(errorSummarizeFileFormat, path, err)
	}
	if !aggregator.options.ReduceChunkSummaries {
		return joined, nil
	}

	for previousWords := len(words); ; {
		joinedWords := strings.Fields(joined)
		if len(joinedWords) <= aggregator.options.FileWordThreshold || len(joinedWords) >= previousWords {
			return joined, nil
		}
		aggregator.logger.Info(logMessageReducingSummaries, zap.String("path", path), zap.Int("words", len(joinedWords)))
		previousWords = len(joinedWords)
		joined, err = aggregator.summarizeChunks(ctx, joinedWords)
		if err != nil {
			return "", fmt.Errorf(errorSummarizeFileFormat, path, err)
		}
	}
}

func (aggregator *Aggregator) summarizeChunks(ctx context.Context, words []string) (string, error) {
	chunks := chunker.SplitIntoChunks(words, aggregator.options.ChunkSize, aggregator.options.ChunkContext)
	chunkSummaries, err := aggregator.mapOrdered(ctx, len(chunks), func(groupContext context.Context, index int) (string, error) {
		summary, summarizeError := aggregator.summarize(groupContext, strings.Join(chunks[index], " "))
		if summarizeError != nil {
			return "", summarizeError
		}
		return fmt.Sprintf(chunkSummaryFormat, index+1, summary), nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(chunkSummaries, "\n"), nil
}

func (aggregator *Aggregator) fileBlock(node *types.FolderNode, fileName string) string {
	header := fmt.Sprintf(fileHeaderFormat, fileName)
	if !aggregator.policy.ShouldProcessFileContent(fileName) {
		return header + exclusion.Placeholder(fileName) + "\n"
	}
	fileContent := aggregator.extractor.ReadFileContent(filepath.Join(node.Path, fileName))
	if languageTag := aggregator.policy.LanguageTag(fileName); languageTag != "" {
		return header + fmt.Sprintf(taggedBlockFormat, languageTag, fileContent)
	}
	return header + fmt.Sprintf(untaggedBlockFormat, fileContent)
}

func (aggregator *Aggregator) summarize(ctx context.Context, text string) (string, error) {
	if err := aggregator.limiter.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer aggregator.limiter.Release(1)
	return aggregator.summarizer.Summarize(ctx, text)
}

// mapOrdered runs work for every index and returns the results in index order. With a
// concurrency of one the calls run sequentially in index order.
func (aggregator *Aggregator) mapOrdered(ctx context.Context, count int, work func(context.Context, int) (string, error)) ([]string, error) {
	results := make([]string, count)
	if aggregator.options.Concurrency <= 1 || count <= 1 {
		for index := 0; index < count; index++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := work(ctx, index)
			if err != nil {
				return nil, err
			}
			results[index] = result
		}
		return results, nil
	}

	group, groupContext := errgroup.WithContext(ctx)
	for index := 0; index < count; index++ {
		group.Go(func() error {
			result, err := work(groupContext, index)
			if err != nil {
				return err
			}
			results[index] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func subfolderNames(node *types.FolderNode) []string {
	names := make([]string, 0, len(node.Subfolders))
	for _, subfolder := range node.Subfolders {
		names = append(names, subfolder.Name)
	}
	return names
}
