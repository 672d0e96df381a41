package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect saved research summaries",
		Commands: []*cli.Command{
			memoryListCommand(),
			memoryShowCommand(),
		},
	}
}

func memoryListCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Show only the most recently saved topics (0 for all)",
			Value:       recentMemoryCount,
			Sources:     cli.EnvVars("SCHOLAR_MEMORY_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List saved topics",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, errWriter(c))
			defer cfg.close()

			repo, err := cfg.newMemoryRepository(ctx)
			if err != nil {
				return err
			}

			entries, err := memory.New(repo).List(ctx, memory.ListOptions{Limit: int(limit)})
			if err != nil {
				return goerr.Wrap(err, "failed to list memories")
			}

			w := c.Root().Writer
			if len(entries) == 0 {
				fmt.Fprintf(w, "No saved memories yet\n")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(w, "- %s\n", e.Topic)
			}
			return nil
		},
	}
}

func memoryShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Print the summary saved for a topic",
		ArgsUsage: "<topic>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, errWriter(c))
			defer cfg.close()

			topic := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if topic == "" {
				return goerr.New("topic is required")
			}

			repo, err := cfg.newMemoryRepository(ctx)
			if err != nil {
				return err
			}

			entry, err := memory.New(repo).Show(ctx, topic)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "# %s\n\n%s\n", entry.Topic, entry.Summary)
			return nil
		},
	}
}
