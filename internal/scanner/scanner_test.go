package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sql-crosscheck/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWalker_Walk(t *testing.T) {
	rootDir := t.TempDir()

	files := []string{
		"sql/02_run.sql",
		"sql/01_setup.SQL",
		"python_udfs/parser_udf.sql",
		"README.md",
		"notes.sql.bak",
		"vendor/vendor.sql",
		".git/hooks.sql",
		"a.sql",
	}

	for _, f := range files {
		path := filepath.Join(rootDir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("SELECT 1;"), 0644))
	}

	tests := []struct {
		name     string
		suffix   string
		excludes []string
		want     []string
	}{
		{
			name:     "Find sql files sorted",
			suffix:   ".sql",
			excludes: []string{"vendor"},
			want: []string{
				"a.sql",
				"python_udfs/parser_udf.sql",
				"sql/01_setup.SQL",
				"sql/02_run.sql",
			},
		},
		{
			name:   "Suffix without dot",
			suffix: "sql",
			want: []string{
				"a.sql",
				"python_udfs/parser_udf.sql",
				"sql/01_setup.SQL",
				"sql/02_run.sql",
				"vendor/vendor.sql",
			},
		},
		{
			name:     "Glob exclude on file names",
			suffix:   ".sql",
			excludes: []string{"vendor", "0*_*"},
			want: []string{
				"a.sql",
				"python_udfs/parser_udf.sql",
			},
		},
		{
			name:   "No matches",
			suffix: ".yaml",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			walker := NewFileWalker(tt.suffix, tt.excludes)

			got, err := walker.Walk(context.Background(), rootDir)
			require.NoError(t, err)

			var gotRel []string
			for _, p := range got {
				assert.True(t, filepath.IsAbs(p), "path %s should be absolute", p)
				rel, err := filepath.Rel(rootDir, p)
				require.NoError(t, err)
				gotRel = append(gotRel, filepath.ToSlash(rel))
			}

			assert.Equal(t, tt.want, gotRel)
		})
	}
}

func TestFileWalker_Walk_EmptyRoot(t *testing.T) {
	got, err := NewFileWalker(".sql", nil).Walk(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileWalker_Walk_ExcludeIgnoresRootPath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "archive"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.sql"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "archive", "old.sql"), nil, 0644))

	got, err := NewFileWalker(".sql", []string{"archive"}).Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.sql")}, got)
}

func TestFileWalker_Walk_BadRoot(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileWalker(".sql", nil).Walk(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file.sql")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = NewFileWalker(".sql", nil).Walk(context.Background(), file)
	assert.Error(t, err)
}

func TestFileWalker_Walk_SymlinkCycle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "x.sql"), nil, 0644))
	if err := os.Symlink(dir, filepath.Join(dir, "sub", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := NewFileWalker(".sql", nil).Walk(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sub", "x.sql")}, got)
}

func TestFileWalker_Walk_SymlinkRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "scripts")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "udfs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "a.sql"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "udfs", "f.sql"), nil, 0644))
	link := filepath.Join(dir, "linked")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := NewFileWalker(".sql", []string{"scripts"}).Walk(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(link, "a.sql"),
		filepath.Join(link, "udfs", "f.sql"),
	}, got)
}

func TestFileWalker_Walk_UnreadableEntriesAreSkipped(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"a.sql", "gone.sql", "sub/b.sql"} {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}
	errDenied := errors.New("permission denied")

	walker := NewFileWalker(".sql", nil)
	walker.walkDir = func(root string, fn fs.WalkDirFunc) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err == nil && (d.Name() == "sub" || d.Name() == "gone.sql") {
				return fn(path, d, errDenied)
			}
			return fn(path, d, err)
		})
	}
	var skipped []string
	walker.OnSkip = func(path string, err error) {
		assert.ErrorIs(t, err, errDenied)
		skipped = append(skipped, path)
	}

	got, err := walker.Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.sql")}, got)
	assert.Equal(t, []string{filepath.Join(root, "gone.sql"), filepath.Join(root, "sub")}, skipped)
}

func TestFileWalker_Walk_RootErrorIsFatal(t *testing.T) {
	walker := NewFileWalker(".sql", nil)
	walker.walkDir = func(root string, fn fs.WalkDirFunc) error {
		return fn(root, nil, errors.New("permission denied"))
	}

	_, err := walker.Walk(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "permission denied")
}

func TestWorkerPool_Run_PreservesOrder(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	// Earlier paths sleep longer so they finish last
	mockProc := func(path string) (*model.Facts, error) {
		delay := time.Duration('h'-path[0]) * time.Millisecond
		time.Sleep(delay)
		return &model.Facts{File: &model.SourceFile{Path: path}}, nil
	}

	for _, workers := range []int{1, 3, 8} {
		pool := NewWorkerPool(workers, mockProc)
		results, err := pool.Run(context.Background(), paths)
		require.NoError(t, err)
		require.Len(t, results, len(paths))

		for i, res := range results {
			assert.Equal(t, i, res.Index)
			assert.Equal(t, paths[i], res.File)
			assert.Equal(t, paths[i], res.Facts.File.Path)
		}
	}
}

func TestWorkerPool_Start_ReportsErrors(t *testing.T) {
	var calls atomic.Int32
	mockProc := func(path string) (*model.Facts, error) {
		calls.Add(1)
		if path == "bad" {
			return nil, errors.New("unreadable")
		}
		return &model.Facts{}, nil
	}

	pool := NewWorkerPool(2, mockProc)
	results, err := pool.Run(context.Background(), []string{"ok", "bad", "ok2"})
	require.NoError(t, err)

	assert.EqualValues(t, 3, calls.Load())
	assert.NoError(t, results[0].Error)
	assert.EqualError(t, results[1].Error, "unreadable")
	assert.NoError(t, results[2].Error)
}

func TestWorkerPool_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewWorkerPool(2, func(path string) (*model.Facts, error) {
		return &model.Facts{}, nil
	})
	_, err := pool.Run(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
}
