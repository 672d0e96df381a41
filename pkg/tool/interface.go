package tool

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Input is what a tool receives when the final draft asks for it
type Input struct {
	// Topic is the research topic of the session
	Topic string
	// Report is the draft text presented as the report
	Report string
	// Args are the directive arguments
	Args map[string]string
}

// Tool is a side-effecting action the writer can request with a directive
type Tool interface {
	// Name is the directive tool name
	Name() string

	// Prompt describes usage for the writer prompt
	Prompt(ctx context.Context) string

	// Flags returns CLI flags for this tool, or nil
	Flags() []cli.Flag

	// Execute runs the tool and returns the text that becomes the final report
	Execute(ctx context.Context, in *Input) (string, error)
}
