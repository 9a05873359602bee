package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sql-crosscheck/internal/model"
)

// FileWalker is responsible for traversing directories and collecting script paths
type FileWalker struct {
	Suffix   string
	Excludes []string
	// OnSkip is told about entries below the root that could not be read.
	// They are left out of the result instead of failing the walk.
	OnSkip func(path string, err error)

	walkDir func(root string, fn fs.WalkDirFunc) error
}

func NewFileWalker(suffix string, excludes []string) *FileWalker {
	suffix = strings.ToLower(suffix)
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	return &FileWalker{
		Suffix:   suffix,
		Excludes: excludes,
		walkDir:  filepath.WalkDir,
	}
}

// Walk returns the absolute paths of all matching files under root, sorted
// lexicographically. A symlinked root is resolved first, but links below it
// are not followed, so link cycles are never entered. Returned paths stay
// under root as given. A root that cannot be enumerated is an error; a root
// without matches is not.
func (fw *FileWalker) Walk(ctx context.Context, root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot enumerate root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot enumerate root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot enumerate root: %s is not a directory", abs)
	}

	walkDir := fw.walkDir
	if walkDir == nil {
		walkDir = filepath.WalkDir
	}

	var paths []string
	err = walkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == resolved {
				return err
			}
			if fw.OnSkip != nil {
				if rel, relErr := filepath.Rel(resolved, path); relErr == nil {
					path = filepath.Join(abs, rel)
				}
				fw.OnSkip(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == resolved {
			return nil
		}
		// Substring excludes see the path below root only
		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}
		slashRel := filepath.ToSlash(rel)

		if d.IsDir() {
			for _, exclude := range fw.Excludes {
				if strings.Contains(slashRel, exclude) {
					return filepath.SkipDir
				}
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir // Skip hidden directories like .git
			}
			return nil
		}

		// Symlinks and other non-regular entries are not scripts
		if !d.Type().IsRegular() {
			return nil
		}

		for _, exclude := range fw.Excludes {
			matched, _ := filepath.Match(exclude, d.Name())
			if matched || strings.Contains(slashRel, exclude) {
				return nil
			}
		}

		if strings.HasSuffix(strings.ToLower(d.Name()), fw.Suffix) {
			paths = append(paths, filepath.Join(abs, rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", abs, err)
	}

	sort.Strings(paths)
	return paths, nil
}

type ScanResult struct {
	Index int
	File  string
	Facts *model.Facts
	Error error
}

// Processor defines a function that processes a file
type Processor func(path string) (*model.Facts, error)

// WorkerPool manages concurrent processing
type WorkerPool struct {
	Concurrency int
	Processor   Processor
}

func NewWorkerPool(concurrency int, proc Processor) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerPool{
		Concurrency: concurrency,
		Processor:   proc,
	}
}

type job struct {
	index int
	path  string
}

// Start processes paths concurrently. Results arrive in completion order and
// carry the index of their path.
func (wp *WorkerPool) Start(ctx context.Context, paths []string) <-chan ScanResult {
	jobs := make(chan job)
	results := make(chan ScanResult)
	var wg sync.WaitGroup

	go func() {
		defer close(jobs)
		for i, path := range paths {
			select {
			case jobs <- job{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < wp.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				facts, err := wp.Processor(j.path)
				// We send result even if err is present, to report extraction errors
				select {
				case results <- ScanResult{Index: j.index, File: j.path, Facts: facts, Error: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// Run processes all paths and returns the results in input order, whatever
// order the workers finished in.
func (wp *WorkerPool) Run(ctx context.Context, paths []string) ([]ScanResult, error) {
	ordered := make([]ScanResult, len(paths))
	for res := range wp.Start(ctx, paths) {
		ordered[res.Index] = res
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ordered, nil
}
