package model

// MemoryEntry is a saved topic summary in the key-value memory store
type MemoryEntry struct {
	Topic   string `json:"topic" firestore:"topic"`
	Summary string `json:"summary" firestore:"summary"`
}
