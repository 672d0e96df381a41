package tool

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/repository"
	"github.com/urfave/cli/v3"
)

// saveMemory stores the report under the session topic in the key-value memory
type saveMemory struct {
	repo repository.MemoryRepository
}

// NewSaveMemory creates the save_memory tool
func NewSaveMemory(repo repository.MemoryRepository) *saveMemory {
	return &saveMemory{repo: repo}
}

func (x *saveMemory) Name() string { return "save_memory" }

func (x *saveMemory) Flags() []cli.Flag { return nil }

func (x *saveMemory) Prompt(ctx context.Context) string {
	return `To remember the report for future research, reply with exactly:
TOOL:save_memory
---
topic=<topic>
summary=<the full report, newlines written as \n>`
}

// Execute saves in.Report (the directive's summary) under the session topic, not the directive's topic argument
func (x *saveMemory) Execute(ctx context.Context, in *Input) (string, error) {
	if x.repo == nil {
		return "", goerr.New("memory repository is not configured")
	}
	if err := x.repo.Save(ctx, in.Topic, in.Report); err != nil {
		return "", goerr.Wrap(err, "failed to save memory", goerr.V("topic", in.Topic))
	}
	return in.Report, nil
}
