package tool_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/tool"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	wf := tool.NewWriteFile()
	gt.Equal(t, wf.Name(), "write_file")

	path := filepath.Join(dir, "notes.md")
	out, err := wf.Execute(context.Background(), &tool.Input{
		Args: map[string]string{"filename": path, "content": "# Notes\n"},
	})
	gt.NoError(t, err)
	gt.Equal(t, out, "File '"+path+"' written successfully.")

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, string(data), "# Notes\n")
}

func TestWriteFileError(t *testing.T) {
	wf := tool.NewWriteFile()
	_, err := wf.Execute(context.Background(), &tool.Input{
		Args: map[string]string{"filename": filepath.Join(t.TempDir(), "missing", "dir", "x.txt")},
	})
	gt.Error(t, err)
}
