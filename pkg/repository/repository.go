package repository

import (
	"context"

	"github.com/m-mizutani/scholar/pkg/model"
)

// MemoryRepository is the key-value memory: topic -> summary, last write wins
type MemoryRepository interface {
	// Load returns every saved topic. An absent store yields an empty map.
	Load(ctx context.Context) (map[string]string, error)

	// Save sets the summary for topic
	Save(ctx context.Context, topic, summary string) error

	// Entries returns saved entries in first-saved order
	Entries(ctx context.Context) ([]model.MemoryEntry, error)
}

// RunLogRepository is the append-only log of completed runs
type RunLogRepository interface {
	// Append adds a record to the end of the log
	Append(ctx context.Context, record *model.RunRecord) error

	// List returns all records, oldest first
	List(ctx context.Context) ([]*model.RunRecord, error)
}

func entriesToMap(entries []model.MemoryEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Topic] = e.Summary
	}
	return m
}
