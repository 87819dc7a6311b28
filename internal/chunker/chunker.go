// Package chunker splits oversized word sequences into bounded windows with surrounding context.
package chunker

// Chunk is a view over a source word slice. Words spans [Start, End) of the source and
// includes the context margins; [CoreStart, CoreEnd) is the window the chunk owns.
type Chunk struct {
	Index     int
	Words     []string
	Start     int
	End       int
	CoreStart int
	CoreEnd   int
}

// Split partitions words into consecutive core windows of chunkSize words, each emitted with up to
// contextSize words of context on either side. Core windows never overlap; emitted chunks may.
// A non-positive chunkSize yields a single window over the whole sequence.
func Split(words []string, chunkSize int, contextSize int) []Chunk {
	totalWords := len(words)
	if totalWords == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = totalWords
	}
	if contextSize < 0 {
		contextSize = 0
	}

	chunks := make([]Chunk, 0, (totalWords+chunkSize-1)/chunkSize)
	for coreStart := 0; coreStart < totalWords; coreStart += chunkSize {
		coreEnd := min(coreStart+chunkSize, totalWords)
		start := max(0, coreStart-contextSize)
		end := min(totalWords, coreEnd+contextSize)
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Words:     words[start:end:end],
			Start:     start,
			End:       end,
			CoreStart: coreStart,
			CoreEnd:   coreEnd,
		})
	}
	return chunks
}

// SplitIntoChunks returns the word lists of Split.
func SplitIntoChunks(words []string, chunkSize int, contextSize int) [][]string {
	chunks := Split(words, chunkSize, contextSize)
	wordLists := make([][]string, 0, len(chunks))
	for _, chunk := range chunks {
		wordLists = append(wordLists, chunk.Words)
	}
	return wordLists
}
