package research

import (
	"strings"
	"time"

	"github.com/m-mizutani/scholar/pkg/model"
)

// Session carries the state of one research run through every pipeline stage
type Session struct {
	ID    model.RunID
	Topic string
	Model string

	RelatedMemories []string
	Plan            model.Plan
	Notes           *model.Notes
	Drafts          []string
	Verdicts        []model.Verdict
	ToolsUsed       []string
	StartedAt       time.Time
	FinalReport     string
}

// NewSession starts a session for topic using model
func NewSession(topic, model string) *Session {
	s := &Session{Model: model}
	s.start(topic)
	return s
}

func (s *Session) start(topic string) {
	s.ID = model.NewRunID()
	s.Topic = topic
	s.RelatedMemories = nil
	s.Plan = nil
	s.Notes = model.NewNotes()
	s.Drafts = nil
	s.Verdicts = nil
	s.ToolsUsed = []string{}
	s.StartedAt = time.Now()
	s.FinalReport = ""
}

// Reset discards everything but the model so the session can be reused for a new topic
func (s *Session) Reset() {
	s.start("")
}

// MemoryContext renders recalled memories as the planner's context block
func (s *Session) MemoryContext() string {
	if len(s.RelatedMemories) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nRelevant past research:\n")
	for _, m := range s.RelatedMemories {
		b.WriteString("- ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	return b.String()
}

// LastDraft returns the latest writer output
func (s *Session) LastDraft() string {
	if len(s.Drafts) == 0 {
		return ""
	}
	return s.Drafts[len(s.Drafts)-1]
}

// Retries counts the verdicts that were not ACCEPT
func (s *Session) Retries() int {
	n := 0
	for _, v := range s.Verdicts {
		if v != model.VerdictAccept {
			n++
		}
	}
	return n
}

// Accepted reports whether the critic accepted the last draft
func (s *Session) Accepted() bool {
	return len(s.Verdicts) > 0 && s.Verdicts[len(s.Verdicts)-1] == model.VerdictAccept
}

// Elapsed returns the time since the session started
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}
