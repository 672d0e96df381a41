package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type RunID string

// NewRunID generates a new unique RunID
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// RunRecord is one completed research run. Records are immutable once appended to the run log.
type RunRecord struct {
	ID          RunID     `json:"id,omitempty" firestore:"id"`
	Timestamp   time.Time `json:"timestamp" firestore:"timestamp"`
	Topic       string    `json:"topic" firestore:"topic"`
	Model       string    `json:"model" firestore:"model"`
	Retries     int       `json:"retries" firestore:"retries"`
	ToolsUsed   []string  `json:"tools_used" firestore:"tools_used"`
	DurationSec float64   `json:"duration_sec" firestore:"duration_sec"`
}

// NewRunRecord builds a record stamped with the current UTC time and the duration rounded to 2 decimals
func NewRunRecord(topic, model string, retries int, toolsUsed []string, duration time.Duration) *RunRecord {
	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	return &RunRecord{
		ID:          NewRunID(),
		Timestamp:   time.Now().UTC(),
		Topic:       topic,
		Model:       model,
		Retries:     retries,
		ToolsUsed:   toolsUsed,
		DurationSec: RoundDuration(duration),
	}
}

// RoundDuration converts d to seconds rounded to 2 decimal places
func RoundDuration(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
