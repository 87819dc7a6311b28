package summarizer

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	// DefaultCacheFileName is the summary cache database created in the output directory.
	DefaultCacheFileName = ".reposum-cache.db"

	cacheKeySeparator = "\x00"

	cacheSchema = `CREATE TABLE IF NOT EXISTS summaries (
	key TEXT PRIMARY KEY,
	model TEXT NOT NULL,
	summary TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

	selectSummaryQuery = "SELECT summary FROM summaries WHERE key = ?"
	insertSummaryQuery = "INSERT OR REPLACE INTO summaries (key, model, summary) VALUES (?, ?, ?)"

	errorOpenCacheFormat       = "open summary cache %s: %w"
	errorCreateCacheDirFormat  = "create summary cache directory %s: %w"
	errorInitializeCacheFormat = "initialize summary cache schema: %w"
	errorConfigureCacheFormat  = "configure summary cache: %w"
	warningCacheReadMessage    = "summary cache read failed"
	warningCacheWriteMessage   = "summary cache write failed"
	debugCacheHitMessage       = "summary cache hit"
)

// Cache stores summaries in a SQLite database keyed by model and text. Identical input
// therefore never reaches the backend twice.
type Cache struct {
	database *sql.DB
	path     string
	next     Summarizer
	model    string
	logger   *zap.Logger
}

// OpenCache opens or creates the cache database at path and decorates next. Cache read and
// write failures are logged and otherwise ignored.
func OpenCache(path string, next Summarizer, modelName string, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if directory := filepath.Dir(path); directory != "" {
		if mkdirError := os.MkdirAll(directory, 0o755); mkdirError != nil {
			return nil, fmt.Errorf(errorCreateCacheDirFormat, directory, mkdirError)
		}
	}

	database, openError := sql.Open("sqlite", path)
	if openError != nil {
		return nil, fmt.Errorf(errorOpenCacheFormat, path, openError)
	}
	database.SetMaxOpenConns(1)
	if _, pragmaError := database.Exec("PRAGMA journal_mode = WAL"); pragmaError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(errorConfigureCacheFormat, pragmaError)
	}
	if _, schemaError := database.Exec(cacheSchema); schemaError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(errorInitializeCacheFormat, schemaError)
	}

	return &Cache{database: database, path: path, next: next, model: modelName, logger: logger}, nil
}

// Path returns the database file path.
func (cache *Cache) Path() string {
	return cache.path
}

// Close releases the database.
func (cache *Cache) Close() error {
	return cache.database.Close()
}

// Summarize returns the cached summary for text or delegates and stores the result.
func (cache *Cache) Summarize(ctx context.Context, text string) (string, error) {
	key := cacheKey(cache.model, text)

	var cached string
	readError := cache.database.QueryRowContext(ctx, selectSummaryQuery, key).Scan(&cached)
	switch {
	case readError == nil:
		cache.logger.Debug(debugCacheHitMessage, zap.String("key", key[:12]))
		return cached, nil
	case errors.Is(readError, sql.ErrNoRows):
	default:
		cache.logger.Warn(warningCacheReadMessage, zap.Error(readError))
	}

	summary, summarizeError := cache.next.Summarize(ctx, text)
	if summarizeError != nil {
		return "", summarizeError
	}
	if _, writeError := cache.database.ExecContext(ctx, insertSummaryQuery, key, cache.model, summary); writeError != nil {
		cache.logger.Warn(warningCacheWriteMessage, zap.Error(writeError))
	}
	return summary, nil
}

func cacheKey(modelName string, text string) string {
	digest := sha256.Sum256([]byte(modelName + cacheKeySeparator + text))
	return hex.EncodeToString(digest[:])
}
