// Package discovery finds animation documents for batch reduction.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/acidbubbles/vam-timeline-sub003/internal/util"
)

// ReducedSuffix marks documents written by a previous reduction. They are
// skipped so that running a batch twice does not reduce its own output.
const ReducedSuffix = ".reduced.yaml"

// DiscoveryLogger defines the interface for discovery logging.
type DiscoveryLogger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// DiscoveryResult contains the results of document discovery.
type DiscoveryResult struct {
	Files        []string
	SkippedCount int
}

// FindDocuments finds animation documents in the given directory.
// Returns files sorted alphabetically by filename.
func FindDocuments(inputDir string) (*DiscoveryResult, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", inputDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", inputDir)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", inputDir, err)
	}

	result := &DiscoveryResult{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(inputDir, name)
		if util.IsDocumentFile(fullPath) && !strings.HasSuffix(strings.ToLower(name), ReducedSuffix) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	if len(result.Files) == 0 {
		return nil, fmt.Errorf("no animation documents found in %s", inputDir)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})
	return result, nil
}

// FindDocumentsWithLogging finds animation documents and logs the first few.
func FindDocumentsWithLogging(inputDir string, logger DiscoveryLogger) (*DiscoveryResult, error) {
	result, err := FindDocuments(inputDir)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logDiscoveredFiles(result, logger)
	}
	return result, nil
}

// logDiscoveredFiles logs the first 5 discovered files plus a count.
func logDiscoveredFiles(result *DiscoveryResult, logger DiscoveryLogger) {
	files := result.Files
	logger.Info("Found %d animation document(s)", len(files))
	if result.SkippedCount > 0 {
		logger.Debug("Skipped %d other file(s)", result.SkippedCount)
	}

	maxToLog := min(5, len(files))
	for i := range maxToLog {
		logger.Debug("  %s", filepath.Base(files[i]))
	}

	if len(files) > 5 {
		logger.Debug("  ... and %d more", len(files)-5)
	}
}
