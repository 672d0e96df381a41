package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestFirestoreMemorySaveThenLoad(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	topic := "test/topic-" + uuid.NewString()
	gt.NoError(t, repo.Save(ctx, topic, "first"))
	gt.NoError(t, repo.Save(ctx, topic, "second"))

	memory, err := repo.Load(ctx)
	gt.NoError(t, err)
	gt.Equal(t, memory[topic], "second")
}

func TestFirestoreRunLog(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	before, err := repo.List(ctx)
	gt.NoError(t, err)

	record := model.NewRunRecord("topic-"+uuid.NewString(), "mistral", 1, []string{"calculator"}, 3*time.Second)
	gt.NoError(t, repo.Append(ctx, record))

	after, err := repo.List(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(after), len(before)+1)

	// Appending the same record again must not overwrite it
	gt.Error(t, repo.Append(ctx, record))
}
