package semantic_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/usecase/semantic"
	"github.com/m-mizutani/scholar/pkg/vector"
)

// mockEmbedder maps known texts to fixed vectors
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, ok := m.vectors[text]
		if !ok {
			return nil, errors.New("unknown text: " + text)
		}
		out = append(out, v)
	}
	return out, nil
}

func newEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors: map[string][]float32{
			"quantum computing report": {1, 0, 0},
			"climate change report":    {0, 1, 0},
			"llm report":               {0, 0, 1},
			"qubits":                   {0.9, 0.1, 0},
			"weather":                  {0.1, 0.9, 0.2},
		},
	}
}

func setup(t *testing.T, embedder *mockEmbedder) (*semantic.Store, string, string) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "semantic_index.bin")
	dataPath := filepath.Join(dir, "semantic_data.json")
	return semantic.New(embedder, indexPath, dataPath), indexPath, dataPath
}

func TestSearchColdStart(t *testing.T) {
	embedder := newEmbedder()
	store, _, _ := setup(t, embedder)

	texts, err := store.Search(context.Background(), "qubits", 3)
	gt.NoError(t, err)
	gt.NotNil(t, texts)
	gt.A(t, texts).Length(0)
	gt.Equal(t, embedder.calls, 0)
}

func TestAddThenSearch(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setup(t, newEmbedder())

	gt.NoError(t, store.Add(ctx, "quantum computing report"))
	gt.NoError(t, store.Add(ctx, "climate change report"))
	gt.NoError(t, store.Add(ctx, "llm report"))

	texts, err := store.Search(ctx, "qubits", 2)
	gt.NoError(t, err)
	gt.Equal(t, texts, []string{"quantum computing report", "climate change report"})

	texts, err = store.Search(ctx, "weather", 0)
	gt.NoError(t, err)
	gt.A(t, texts).Length(semantic.DefaultLimit)
	gt.Equal(t, texts[0], "climate change report")
}

func TestOrdinalAlignment(t *testing.T) {
	ctx := context.Background()
	embedder := newEmbedder()
	store, indexPath, _ := setup(t, embedder)

	inputs := []string{"quantum computing report", "climate change report", "llm report"}
	for _, text := range inputs {
		gt.NoError(t, store.Add(ctx, text))
	}

	texts, err := store.Texts(ctx)
	gt.NoError(t, err)
	gt.Equal(t, texts, inputs)

	index, err := vector.Load(indexPath)
	gt.NoError(t, err)
	gt.Equal(t, index.Len(), len(texts))

	// each stored text must be its own nearest neighbour
	for i, text := range inputs {
		hits, err := index.Search(embedder.vectors[text], 1)
		gt.NoError(t, err)
		gt.Equal(t, hits[0].Position, i)
	}
}

func TestSearchSkipsPositionsWithoutText(t *testing.T) {
	ctx := context.Background()
	store, _, dataPath := setup(t, newEmbedder())

	gt.NoError(t, store.Add(ctx, "quantum computing report"))
	gt.NoError(t, store.Add(ctx, "climate change report"))

	// simulate a crash after the index write but before the data write
	raw, err := json.Marshal([]string{"quantum computing report"})
	gt.NoError(t, err)
	gt.NoError(t, os.WriteFile(dataPath, raw, 0o644))

	texts, err := store.Search(ctx, "weather", 3)
	gt.NoError(t, err)
	gt.Equal(t, texts, []string{"quantum computing report"})
}

func TestAddAfterCrashRealigns(t *testing.T) {
	ctx := context.Background()
	embedder := newEmbedder()
	store, indexPath, _ := setup(t, embedder)

	gt.NoError(t, store.Add(ctx, "quantum computing report"))

	// the index got a vector whose text was never written
	index, err := vector.Load(indexPath)
	gt.NoError(t, err)
	gt.NoError(t, index.Add(embedder.vectors["climate change report"]))
	gt.NoError(t, index.Save(indexPath))

	gt.NoError(t, store.Add(ctx, "llm report"))

	texts, err := store.Texts(ctx)
	gt.NoError(t, err)
	gt.Equal(t, texts, []string{"quantum computing report", "llm report"})

	index, err = vector.Load(indexPath)
	gt.NoError(t, err)
	gt.Equal(t, index.Len(), 2)

	hits, err := store.Search(ctx, "llm report", 1)
	gt.NoError(t, err)
	gt.Equal(t, hits, []string{"llm report"})

	hits, err = store.Search(ctx, "quantum computing report", 1)
	gt.NoError(t, err)
	gt.Equal(t, hits, []string{"quantum computing report"})
}

func TestAddDropsTextsWithoutVectors(t *testing.T) {
	ctx := context.Background()
	store, _, dataPath := setup(t, newEmbedder())

	gt.NoError(t, store.Add(ctx, "quantum computing report"))

	raw, err := json.Marshal([]string{"quantum computing report", "orphan text"})
	gt.NoError(t, err)
	gt.NoError(t, os.WriteFile(dataPath, raw, 0o644))

	gt.NoError(t, store.Add(ctx, "climate change report"))

	texts, err := store.Texts(ctx)
	gt.NoError(t, err)
	gt.Equal(t, texts, []string{"quantum computing report", "climate change report"})

	hits, err := store.Search(ctx, "weather", 1)
	gt.NoError(t, err)
	gt.Equal(t, hits, []string{"climate change report"})
}

func TestEmbedErrorPropagates(t *testing.T) {
	ctx := context.Background()
	embedder := newEmbedder()
	store, indexPath, dataPath := setup(t, embedder)

	gt.NoError(t, store.Add(ctx, "llm report"))

	embedder.err = errors.New("embedding service down")
	gt.Error(t, store.Add(ctx, "climate change report"))
	_, err := store.Search(ctx, "weather", 3)
	gt.Error(t, err)

	// nothing was written by the failed Add
	index, err := vector.Load(indexPath)
	gt.NoError(t, err)
	gt.Equal(t, index.Len(), 1)

	raw, err := os.ReadFile(dataPath)
	gt.NoError(t, err)
	var data []string
	gt.NoError(t, json.Unmarshal(raw, &data))
	gt.Equal(t, data, []string{"llm report"})
}

func TestAddDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	embedder := newEmbedder()
	embedder.vectors["short"] = []float32{1, 2}
	store, _, _ := setup(t, embedder)

	gt.NoError(t, store.Add(ctx, "llm report"))
	err := store.Add(ctx, "short")
	gt.True(t, errors.Is(err, vector.ErrDimensionMismatch))
}
