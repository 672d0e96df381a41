package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/usecase/history"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Skip this many of the newest runs",
			Value:       0,
			Sources:     cli.EnvVars("SCHOLAR_HISTORY_OFFSET"),
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of runs to list (0 for all)",
			Value:       20,
			Sources:     cli.EnvVars("SCHOLAR_HISTORY_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "List past research runs",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, errWriter(c))
			defer cfg.close()

			runLog, err := cfg.newRunLog(ctx)
			if err != nil {
				return err
			}

			records, err := history.List(ctx, runLog, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list runs")
			}

			w := c.Root().Writer
			if len(records) == 0 {
				fmt.Fprintf(w, "No runs recorded yet\n")
				return nil
			}
			for _, r := range records {
				tools := "-"
				if len(r.ToolsUsed) > 0 {
					tools = strings.Join(r.ToolsUsed, ",")
				}
				fmt.Fprintf(w, "%s  %-10s retries=%d tools=%s %.2fs  %s\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), r.Model, r.Retries, tools, r.DurationSec, r.Topic)
			}
			return nil
		},
	}
}
