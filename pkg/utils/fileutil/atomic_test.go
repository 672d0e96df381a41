package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/utils/fileutil"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.json")

	gt.NoError(t, fileutil.WriteAtomic(path, []byte("first"), 0o644))
	gt.NoError(t, fileutil.WriteAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, string(data), "second")

	entries, err := os.ReadDir(filepath.Dir(path))
	gt.NoError(t, err)
	gt.A(t, entries).Length(1)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x")

	ok, err := fileutil.Exists(path)
	gt.NoError(t, err)
	gt.False(t, ok)

	gt.NoError(t, os.WriteFile(path, nil, 0o644))
	ok, err = fileutil.Exists(path)
	gt.NoError(t, err)
	gt.True(t, ok)
}
