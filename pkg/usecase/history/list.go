package history

import (
	"context"

	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/repository"
)

// List returns run records oldest first, skipping the newest offset records and keeping at most limit of the rest.
// Zero limit means no limit.
func List(
	ctx context.Context,
	repo repository.RunLogRepository,
	offset, limit int,
) ([]*model.RunRecord, error) {
	records, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	end := len(records) - offset
	if end <= 0 {
		return []*model.RunRecord{}, nil
	}
	start := 0
	if limit > 0 && end > limit {
		start = end - limit
	}

	return records[start:end], nil
}
