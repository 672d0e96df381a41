package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/scholar/pkg/usecase/memory"
	"github.com/m-mizutani/scholar/pkg/usecase/research"
)

var Preview = preview

func RunWithWriters(ctx context.Context, argv []string, w, errW io.Writer) *Error {
	return run(ctx, newApp(w, errW), argv)
}

type Shell = interactiveShell

func NewShell(w io.Writer, uc *research.UseCase, mem *memory.UseCase, s *research.Session) *Shell {
	return &interactiveShell{w: w, uc: uc, memory: mem, session: s}
}

func (x *Shell) Handle(ctx context.Context, line string) (bool, error) {
	return x.handle(ctx, line)
}
