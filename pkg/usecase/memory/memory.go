package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/repository"
)

var ErrMemoryNotFound = goerr.New("memory not found")

// UseCase provides read access to saved research summaries
type UseCase struct {
	repo repository.MemoryRepository
}

// New creates a new memory UseCase instance
func New(repo repository.MemoryRepository) *UseCase {
	return &UseCase{repo: repo}
}

// ListOptions contains options for listing memories
type ListOptions struct {
	// Limit keeps only the most recently saved entries. Zero means all.
	Limit int
}

// List returns saved entries in save order, oldest first
func (u *UseCase) List(ctx context.Context, opts ListOptions) ([]model.MemoryEntry, error) {
	entries, err := u.repo.Entries(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}

	return entries, nil
}

// Show returns the summary saved for topic
func (u *UseCase) Show(ctx context.Context, topic string) (*model.MemoryEntry, error) {
	saved, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	summary, ok := saved[topic]
	if !ok {
		return nil, goerr.Wrap(ErrMemoryNotFound, "no memory for topic", goerr.V("topic", topic))
	}

	return &model.MemoryEntry{Topic: topic, Summary: summary}, nil
}
