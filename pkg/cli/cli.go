package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	return run(ctx, newApp(os.Stdout, os.Stderr), argv)
}

func newApp(w, errW io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "scholar",
		Usage:     "Multi-stage research assistant backed by a local or hosted LLM",
		Writer:    w,
		ErrWriter: errW,
		Commands: []*cli.Command{
			researchCommand(),
			interactiveCommand(),
			recallCommand(),
			memoryCommand(),
			historyCommand(),
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, argv []string) *Error {
	if err := cmd.Run(ctx, argv); err != nil {
		// commands install the configured logger as default before failing
		logging.Default().Error("command failed", logging.ErrAttr(err))
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// errWriter returns where logs of c go
func errWriter(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
