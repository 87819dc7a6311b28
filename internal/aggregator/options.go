package aggregator

const (
	// DefaultFolderWordThreshold bounds the combined text of one folder sent in a single call.
	DefaultFolderWordThreshold = 20000
	// DefaultFileWordThreshold bounds the content of one file sent in a single call.
	DefaultFileWordThreshold = 20000
	// DefaultChunkSize is the core window of a file chunk, in words.
	DefaultChunkSize = 4000
	// DefaultChunkContext is the context margin on either side of a chunk, in words.
	DefaultChunkContext = 100
	// DefaultConcurrency keeps the run sequential.
	DefaultConcurrency = 1
)

// Options tunes the aggregation thresholds and parallelism.
type Options struct {
	FolderWordThreshold  int
	FileWordThreshold    int
	ChunkSize            int
	ChunkContext         int
	Concurrency          int
	ReduceChunkSummaries bool
}

// DefaultOptions returns the standard thresholds with a sequential run.
func DefaultOptions() Options {
	return Options{
		FolderWordThreshold: DefaultFolderWordThreshold,
		FileWordThreshold:   DefaultFileWordThreshold,
		ChunkSize:           DefaultChunkSize,
		ChunkContext:        DefaultChunkContext,
		Concurrency:         DefaultConcurrency,
	}
}

func (options Options) normalized() Options {
	defaults := DefaultOptions()
	if options.FolderWordThreshold <= 0 {
		options.FolderWordThreshold = defaults.FolderWordThreshold
	}
	if options.FileWordThreshold <= 0 {
		options.FileWordThreshold = defaults.FileWordThreshold
	}
	if options.ChunkSize <= 0 {
		options.ChunkSize = defaults.ChunkSize
	}
	if options.ChunkContext < 0 {
		options.ChunkContext = 0
	}
	if options.Concurrency <= 0 {
		options.Concurrency = defaults.Concurrency
	}
	return options
}
