package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/utils/fileutil"
)

// FileMemory stores the key-value memory as a JSON object in a single file.
// Writes replace the file atomically; a mutex serialises read-modify-write within the process.
type FileMemory struct {
	path string
	mu   sync.Mutex
}

var _ MemoryRepository = (*FileMemory)(nil)

// NewFileMemory creates a file-backed memory repository
func NewFileMemory(path string) *FileMemory {
	return &FileMemory{path: path}
}

func (r *FileMemory) Load(ctx context.Context) (map[string]string, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return entriesToMap(entries), nil
}

func (r *FileMemory) Entries(ctx context.Context) ([]model.MemoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileMemory) Save(ctx context.Context, topic, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return err
	}

	replaced := false
	for i := range entries {
		if entries[i].Topic == topic {
			entries[i].Summary = summary
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, model.MemoryEntry{Topic: topic, Summary: summary})
	}

	data, err := marshalEntries(entries)
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(r.path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write memory file", goerr.V("topic", topic))
	}
	return nil
}

func (r *FileMemory) read() ([]model.MemoryEntry, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read memory file", goerr.V("path", r.path))
	}

	entries, err := unmarshalEntries(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse memory file", goerr.V("path", r.path))
	}
	return entries, nil
}

// marshalEntries writes a JSON object keeping entry order, indented by 2 spaces
func marshalEntries(entries []model.MemoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(",")
		}
		k, err := json.Marshal(e.Topic)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal topic")
		}
		v, err := json.Marshal(e.Summary)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal summary")
		}
		buf.WriteString("\n  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
	}
	if len(entries) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

// unmarshalEntries reads a JSON object of string values keeping key order.
// A repeated key keeps its first position and its last value.
func unmarshalEntries(data []byte) ([]model.MemoryEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read memory object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, goerr.New("memory file is not a JSON object")
	}

	var entries []model.MemoryEntry
	pos := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read memory key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, goerr.New("memory key is not a string")
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, goerr.Wrap(err, "failed to read memory value", goerr.V("topic", key))
		}

		if i, ok := pos[key]; ok {
			entries[i].Summary = value
			continue
		}
		pos[key] = len(entries)
		entries = append(entries, model.MemoryEntry{Topic: key, Summary: value})
	}

	return entries, nil
}

// FileRunLog stores run records as a JSON array in a single file
type FileRunLog struct {
	path string
	mu   sync.Mutex
}

var _ RunLogRepository = (*FileRunLog)(nil)

// NewFileRunLog creates a file-backed run log
func NewFileRunLog(path string) *FileRunLog {
	return &FileRunLog{path: path}
}

func (r *FileRunLog) Append(ctx context.Context, record *model.RunRecord) error {
	if record == nil {
		return goerr.New("run record is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil {
		return err
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal run log")
	}
	if err := fileutil.WriteAtomic(r.path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write run log", goerr.V("run_id", record.ID))
	}
	return nil
}

func (r *FileRunLog) List(ctx context.Context) ([]*model.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileRunLog) read() ([]*model.RunRecord, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read run log", goerr.V("path", r.path))
	}

	var records []*model.RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, goerr.Wrap(err, "failed to parse run log", goerr.V("path", r.path))
	}
	return records, nil
}
