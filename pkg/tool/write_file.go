package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const defaultOutputFile = "output.txt"

// writeFile writes caller-supplied content to a caller-supplied file name.
// The name is not sanitised; relative names resolve under baseDir when set.
type writeFile struct {
	baseDir string
}

// NewWriteFile creates the write_file tool
func NewWriteFile() *writeFile {
	return &writeFile{}
}

func (x *writeFile) Name() string { return "write_file" }

func (x *writeFile) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "write-file-dir",
			Usage:       "Directory that relative write_file names resolve against (default: working directory)",
			Sources:     cli.EnvVars("SCHOLAR_WRITE_FILE_DIR"),
			Destination: &x.baseDir,
		},
	}
}

func (x *writeFile) Prompt(ctx context.Context) string {
	return `To save content to a file instead of writing a report, reply with exactly:
TOOL:write_file
---
filename=<file name>
content=<file content, newlines written as \n>`
}

func (x *writeFile) Execute(ctx context.Context, in *Input) (string, error) {
	filename := in.Args["filename"]
	if filename == "" {
		filename = defaultOutputFile
	}

	path := filename
	if x.baseDir != "" && !filepath.IsAbs(filename) {
		path = filepath.Join(x.baseDir, filename)
	}

	if err := os.WriteFile(path, []byte(in.Args["content"]), 0o644); err != nil {
		return "", goerr.Wrap(err, "failed to write file", goerr.V("path", path))
	}

	logging.From(ctx).Info("file written by tool", "path", path, "bytes", len(in.Args["content"]))
	return fmt.Sprintf("File '%s' written successfully.", filename), nil
}
