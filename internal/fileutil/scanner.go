package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// WorkGraphExtensions are the file extensions treated as WorkGraph documents.
var WorkGraphExtensions = []string{".json", ".yaml", ".yml"}

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Glob is a doublestar pattern matched against the slash-separated path
	// relative to the scanned directory (e.g. "**/wg-*.json")
	Glob string
	// Extensions is a list of file extensions to include (e.g., ".json", ".yaml")
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs is a list of directory names to exclude (e.g., "runs", "node_modules")
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the absolute paths of all matched files
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ScanDirectory scans a directory for files matching the provided options
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	if opts.Glob != "" && !doublestar.ValidatePattern(opts.Glob) {
		return nil, fmt.Errorf("invalid glob pattern: %q", opts.Glob)
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to relativize %s: %w", path, relErr))
			return nil
		}

		if d.IsDir() {
			if excludeMap[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				depth := strings.Count(rel, string(filepath.Separator)) + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if len(extMap) > 0 && !extMap[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		if opts.Glob != "" {
			ok, matchErr := doublestar.Match(opts.Glob, filepath.ToSlash(rel))
			if matchErr != nil || !ok {
				return nil
			}
		}

		absPath, absErr := filepath.Abs(path)
		if absErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, absErr))
			return nil
		}
		result.Files = append(result.Files, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}

// FindWorkGraphFiles expands paths into WorkGraph documents. Files are kept
// as given (made absolute); directories are scanned recursively, skipping
// run record directories. The result is de-duplicated and sorted.
func FindWorkGraphFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(absPath)
			continue
		}

		res, err := ScanDirectory(absPath, ScanOptions{
			Extensions:  WorkGraphExtensions,
			Recursive:   true,
			ExcludeDirs: []string{"runs"},
		})
		if err != nil {
			return nil, err
		}
		for _, f := range res.Files {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no WorkGraph files (.json, .yaml, .yml) found")
	}
	sort.Strings(files)
	return files, nil
}
