package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/tool"
	"github.com/m-mizutani/scholar/pkg/usecase/research"
	"github.com/m-mizutani/scholar/pkg/utils/fileutil"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func researchCommand() *cli.Command {
	var (
		cfg           config
		output        string
		archiveBucket string
		noSpinner     bool
	)

	calculator := tool.NewCalculator()
	writeFile := tool.NewWriteFile()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the final report to this Markdown file. Use '-' for <topic>.md in the working directory",
			Sources:     cli.EnvVars("SCHOLAR_OUTPUT"),
			Destination: &output,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket receiving reports/<topic>.md",
			Sources:     cli.EnvVars("SCHOLAR_ARCHIVE_BUCKET"),
			Destination: &archiveBucket,
		},
		&cli.BoolFlag{
			Name:        "no-spinner",
			Usage:       "Disable the progress spinner",
			Sources:     cli.EnvVars("SCHOLAR_NO_SPINNER"),
			Destination: &noSpinner,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, pipelineFlags(&cfg)...)
	flags = append(flags, calculator.Flags()...)
	flags = append(flags, writeFile.Flags()...)

	return &cli.Command{
		Name:      "research",
		Usage:     "Research a topic and print the final report",
		ArgsUsage: "<topic>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, errWriter(c))
			defer cfg.close()

			topic := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if topic == "" {
				return goerr.New("topic is required")
			}

			uc, err := cfg.newResearch(ctx, calculator, writeFile)
			if err != nil {
				return err
			}

			var spin *spinner.Spinner
			if !noSpinner {
				spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errWriter(c)))
				spin.Suffix = " Researching " + topic + "..."
				spin.Start()
			}

			result, err := uc.Run(ctx, topic, cfg.modelName())
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return goerr.Wrap(err, "research failed", goerr.V("topic", topic))
			}

			w := c.Root().Writer
			printResult(w, result)

			if output != "" {
				path := output
				if path == "-" {
					path = ReportFileName(topic)
				}
				if err := fileutil.WriteAtomic(path, []byte(result.Report), 0o644); err != nil {
					return goerr.Wrap(err, "failed to write report", goerr.V("path", path))
				}
				logging.From(ctx).Info("report written", "path", path)
			}

			if archiveBucket != "" {
				if err := archiveReport(ctx, &cfg, archiveBucket, topic, result.Report); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

// ReportFileName returns the download name of a report: lower-cased topic, spaces replaced by underscores
func ReportFileName(topic string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(topic)), " ", "_") + ".md"
}

func printResult(w io.Writer, result *research.Result) {
	fmt.Fprintf(w, "## Research Plan\n\n")
	for _, s := range result.Session.Plan {
		fmt.Fprintf(w, "- %s\n", s)
	}
	fmt.Fprintf(w, "\n## Final Report\n\n%s\n\n", result.Report)

	tools := "none"
	if len(result.ToolsUsed) > 0 {
		tools = strings.Join(result.ToolsUsed, ", ")
	}
	fmt.Fprintf(w, "---\nretries: %d, tools: %s, duration: %.2fs\n", result.Retries, tools, result.Record.DurationSec)
}

func archiveReport(ctx context.Context, cfg *config, bucket, topic, report string) error {
	storage, err := cfg.newStorage(ctx, bucket)
	if err != nil {
		return err
	}

	key := "reports/" + ReportFileName(topic)
	wr, err := storage.Put(ctx, key, "text/markdown")
	if err != nil {
		return goerr.Wrap(err, "failed to open archive object", goerr.V("key", key))
	}
	if _, err := io.WriteString(wr, report); err != nil {
		_ = wr.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("key", key))
	}
	if err := wr.Close(); err != nil {
		return goerr.Wrap(err, "failed to close archive object", goerr.V("key", key))
	}

	logging.From(ctx).Info("report archived", "bucket", bucket, "key", key)
	return nil
}
