package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/tool"
	"github.com/m-mizutani/scholar/pkg/usecase/memory"
	"github.com/m-mizutani/scholar/pkg/usecase/research"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const recentMemoryCount = 5

func interactiveCommand() *cli.Command {
	var (
		cfg         config
		historyFile string
	)

	calculator := tool.NewCalculator()
	writeFile := tool.NewWriteFile()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "history-file",
			Usage:       "File keeping entered topics across sessions",
			Sources:     cli.EnvVars("SCHOLAR_HISTORY_FILE"),
			Destination: &historyFile,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, pipelineFlags(&cfg)...)
	flags = append(flags, calculator.Flags()...)
	flags = append(flags, writeFile.Flags()...)

	return &cli.Command{
		Name:  "interactive",
		Usage: "Research topics one after another in a prompt",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, errWriter(c))
			defer cfg.close()

			uc, err := cfg.newResearch(ctx, calculator, writeFile)
			if err != nil {
				return err
			}

			repo, err := cfg.newMemoryRepository(ctx)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "topic> ",
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize prompt")
			}
			defer rl.Close()

			shell := &interactiveShell{
				w:       rl.Stdout(),
				uc:      uc,
				memory:  memory.New(repo),
				session: research.NewSession("", cfg.modelName()),
			}
			fmt.Fprintf(shell.w, "Enter a topic to research. Commands: :reset, :model <name>, :memory, exit\n")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				done, err := shell.handle(ctx, line)
				if err != nil {
					logging.From(ctx).Error("research failed", logging.ErrAttr(err))
					fmt.Fprintf(shell.w, "error: %v\n", err)
				}
				if done {
					return nil
				}
			}
		},
	}
}

type interactiveShell struct {
	w       io.Writer
	uc      *research.UseCase
	memory  *memory.UseCase
	session *research.Session
}

// handle processes one input line and reports whether the loop should end
func (x *interactiveShell) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return false, nil

	case line == "exit" || line == "quit":
		return true, nil

	case line == ":reset":
		x.session.Reset()
		fmt.Fprintf(x.w, "Session reset\n")
		return false, nil

	case strings.HasPrefix(line, ":model"):
		name := strings.TrimSpace(strings.TrimPrefix(line, ":model"))
		if name == "" {
			fmt.Fprintf(x.w, "model: %s\n", x.session.Model)
			return false, nil
		}
		x.session.Model = name
		fmt.Fprintf(x.w, "model switched to %s\n", name)
		return false, nil

	case line == ":memory":
		entries, err := x.memory.List(ctx, memory.ListOptions{Limit: recentMemoryCount})
		if err != nil {
			return false, err
		}
		if len(entries) == 0 {
			fmt.Fprintf(x.w, "No saved memories yet\n")
		}
		for _, e := range entries {
			fmt.Fprintf(x.w, "- %s\n", e.Topic)
		}
		return false, nil

	case strings.HasPrefix(line, ":"):
		fmt.Fprintf(x.w, "unknown command: %s\n", line)
		return false, nil
	}

	x.session.Topic = line
	result, err := x.uc.RunSession(ctx, x.session)
	if err != nil {
		return false, err
	}

	if len(result.Session.RelatedMemories) > 0 {
		fmt.Fprintf(x.w, "## Related Research\n\n")
		for _, m := range result.Session.RelatedMemories {
			fmt.Fprintf(x.w, "- %s\n", preview(m))
		}
		fmt.Fprintln(x.w)
	}
	printResult(x.w, result)

	return false, nil
}
