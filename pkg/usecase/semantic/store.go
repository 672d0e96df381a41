// Package semantic keeps past research texts alongside their embeddings and recalls the ones
// nearest to a query. Texts are a JSON array; vectors live in a separate index file. The Nth
// text belongs to the Nth vector.
package semantic

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/adapter"
	"github.com/m-mizutani/scholar/pkg/utils/fileutil"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/m-mizutani/scholar/pkg/vector"
)

// DefaultLimit is the number of texts returned by Search when k is not positive
const DefaultLimit = 3

// Store is the semantic memory
type Store struct {
	embedder  adapter.Embedder
	indexPath string
	dataPath  string
	mu        sync.Mutex
}

// New creates a semantic memory persisted at indexPath (vectors) and dataPath (texts)
func New(embedder adapter.Embedder, indexPath, dataPath string) *Store {
	return &Store{
		embedder:  embedder,
		indexPath: indexPath,
		dataPath:  dataPath,
	}
}

// Add embeds text and appends it to the memory
func (s *Store) Add(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vec, err := s.embedOne(ctx, text)
	if err != nil {
		return err
	}

	index, err := s.loadIndex(len(vec))
	if err != nil {
		return err
	}
	data, err := s.loadData()
	if err != nil {
		return err
	}

	index, data = realign(ctx, index, data)

	if err := index.Add(vec); err != nil {
		return goerr.Wrap(err, "failed to add vector to index")
	}
	data = append(data, text)

	// index first: a crash between the writes leaves an extra vector. Search skips it and the
	// next Add drops it before appending.
	if err := index.Save(s.indexPath); err != nil {
		return err
	}
	if err := s.saveData(data); err != nil {
		return err
	}

	logging.From(ctx).Debug("semantic memory appended", "entries", len(data), "dim", index.Dim())
	return nil
}

// realign drops trailing vectors or texts that have no counterpart so the Nth text stays paired
// with the Nth vector
func realign(ctx context.Context, index *vector.Index, data []string) (*vector.Index, []string) {
	switch {
	case index.Len() > len(data):
		logging.From(ctx).Warn("semantic index has vectors without text, dropping them",
			"vectors", index.Len(), "texts", len(data))
		index.Truncate(len(data))
	case len(data) > index.Len():
		logging.From(ctx).Warn("semantic data has texts without vectors, dropping them",
			"vectors", index.Len(), "texts", len(data))
		data = data[:index.Len()]
	}
	return index, data
}

// Search returns up to k stored texts nearest to query, nearest first.
// Before anything has been added it returns no texts and no error.
func (s *Store) Search(ctx context.Context, query string, k int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 {
		k = DefaultLimit
	}

	exists, err := fileutil.Exists(s.indexPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []string{}, nil
	}

	data, err := s.loadData()
	if err != nil {
		return nil, err
	}
	index, err := vector.Load(s.indexPath)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := index.Search(vec, k)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search index")
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(data) {
			logging.From(ctx).Warn("semantic index position has no text, skipping",
				"position", hit.Position, "texts", len(data), "vectors", index.Len())
			continue
		}
		texts = append(texts, data[hit.Position])
	}

	return texts, nil
}

// Texts returns every stored text in insertion order
func (s *Store) Texts(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadData()
}

func (s *Store) embedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text")
	}
	if len(vectors) != 1 {
		return nil, goerr.New("embedder returned unexpected number of vectors", goerr.V("count", len(vectors)))
	}
	return vectors[0], nil
}

func (s *Store) loadIndex(dim int) (*vector.Index, error) {
	exists, err := fileutil.Exists(s.indexPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return vector.New(dim)
	}
	return vector.Load(s.indexPath)
}

func (s *Store) loadData() ([]string, error) {
	raw, err := os.ReadFile(s.dataPath)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read semantic data", goerr.V("path", s.dataPath))
	}

	var data []string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, goerr.Wrap(err, "failed to parse semantic data", goerr.V("path", s.dataPath))
	}
	return data, nil
}

func (s *Store) saveData(data []string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal semantic data")
	}
	if err := fileutil.WriteAtomic(s.dataPath, raw, 0o644); err != nil {
		return goerr.Wrap(err, "failed to save semantic data")
	}
	return nil
}
