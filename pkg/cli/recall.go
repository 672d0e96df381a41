package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const previewLength = 80

func recallCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of past reports to show",
			Value:       3,
			Sources:     cli.EnvVars("SCHOLAR_RECALL_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "recall",
		Usage:     "Find past reports semantically close to a query",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, errWriter(c))

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			store, err := cfg.newSemantic(ctx)
			if err != nil {
				return err
			}

			texts, err := store.Search(ctx, query, int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to search semantic memory")
			}

			w := c.Root().Writer
			if len(texts) == 0 {
				fmt.Fprintf(w, "No related knowledge found\n")
				return nil
			}
			for _, text := range texts {
				fmt.Fprintf(w, "- %s\n", preview(text))
			}
			return nil
		},
	}
}

// preview returns the first 80 characters of text followed by "..."
func preview(text string) string {
	r := []rune(text)
	if len(r) > previewLength {
		r = r[:previewLength]
	}
	return string(r) + "..."
}
