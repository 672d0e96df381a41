package memory_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/repository"
	"github.com/m-mizutani/scholar/pkg/usecase/memory"
)

func setup(t *testing.T) *memory.UseCase {
	ctx := context.Background()
	repo := repository.NewFileMemory(filepath.Join(t.TempDir(), "agent_memory.json"))
	for _, topic := range []string{"A", "B", "C", "D", "E", "F"} {
		gt.NoError(t, repo.Save(ctx, topic, "summary of "+topic))
	}
	return memory.New(repo)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	uc := setup(t)

	all, err := uc.List(ctx, memory.ListOptions{})
	gt.NoError(t, err)
	gt.Equal(t, len(all), 6)

	last, err := uc.List(ctx, memory.ListOptions{Limit: 5})
	gt.NoError(t, err)
	gt.Equal(t, len(last), 5)
	gt.Equal(t, last[0].Topic, "B")
	gt.Equal(t, last[4].Topic, "F")
}

func TestShow(t *testing.T) {
	ctx := context.Background()
	uc := setup(t)

	entry, err := uc.Show(ctx, "C")
	gt.NoError(t, err)
	gt.Equal(t, entry.Summary, "summary of C")

	_, err = uc.Show(ctx, "Z")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, memory.ErrMemoryNotFound))
}
