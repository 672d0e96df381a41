package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionMemories = "memories"
	collectionRuns     = "runs"
)

// Firestore implements MemoryRepository and RunLogRepository on Cloud Firestore
type Firestore struct {
	client *firestore.Client
}

var (
	_ MemoryRepository = (*Firestore)(nil)
	_ RunLogRepository = (*Firestore)(nil)
)

// NewFirestore creates a Firestore repository on the given database
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

type memoryDoc struct {
	Topic     string    `firestore:"topic"`
	Summary   string    `firestore:"summary"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// memoryDocID derives a document ID from the topic; topics may contain '/' which Firestore rejects
func memoryDocID(topic string) string {
	sum := sha256.Sum256([]byte(topic))
	return hex.EncodeToString(sum[:])
}

func (r *Firestore) Load(ctx context.Context) (map[string]string, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return entriesToMap(entries), nil
}

func (r *Firestore) Save(ctx context.Context, topic, summary string) error {
	ref := r.client.Collection(collectionMemories).Doc(memoryDocID(topic))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		doc := memoryDoc{
			Topic:     topic,
			Summary:   summary,
			CreatedAt: now,
			UpdatedAt: now,
		}

		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return goerr.Wrap(err, "failed to get memory")
		default:
			var existing memoryDoc
			if err := snap.DataTo(&existing); err != nil {
				return goerr.Wrap(err, "failed to decode memory")
			}
			doc.CreatedAt = existing.CreatedAt
		}

		return tx.Set(ref, doc)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save memory", goerr.V("topic", topic))
	}

	return nil
}

func (r *Firestore) Entries(ctx context.Context) ([]model.MemoryEntry, error) {
	iter := r.client.Collection(collectionMemories).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var entries []model.MemoryEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memories")
		}

		var doc memoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("doc_id", snap.Ref.ID))
		}
		entries = append(entries, model.MemoryEntry{Topic: doc.Topic, Summary: doc.Summary})
	}

	return entries, nil
}

func (r *Firestore) Append(ctx context.Context, record *model.RunRecord) error {
	if record == nil {
		return goerr.New("run record is nil")
	}
	if record.ID == "" {
		record.ID = model.NewRunID()
	}

	// Create fails if the ID exists, so a record is never overwritten
	if _, err := r.client.Collection(collectionRuns).Doc(string(record.ID)).Create(ctx, record); err != nil {
		return goerr.Wrap(err, "failed to append run record", goerr.V("run_id", record.ID))
	}
	return nil
}

func (r *Firestore) List(ctx context.Context) ([]*model.RunRecord, error) {
	iter := r.client.Collection(collectionRuns).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []*model.RunRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate run records")
		}

		var record model.RunRecord
		if err := snap.DataTo(&record); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run record", goerr.V("doc_id", snap.Ref.ID))
		}
		records = append(records, &record)
	}

	return records, nil
}
