package research_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/usecase/research"
)

func TestSessionMemoryContext(t *testing.T) {
	s := research.NewSession("Quantum Computing", "mistral")
	gt.Equal(t, s.MemoryContext(), "")

	s.RelatedMemories = []string{"a", "b"}
	gt.Equal(t, s.MemoryContext(), "\n\nRelevant past research:\n- a\n- b\n")
}

func TestSessionReset(t *testing.T) {
	s := research.NewSession("Quantum Computing", "llama2")
	id := s.ID
	s.Plan = model.Plan{"x"}
	s.Notes.Set("x", "y")
	s.Drafts = []string{"d"}
	s.Verdicts = []model.Verdict{model.VerdictRetry}
	s.ToolsUsed = append(s.ToolsUsed, "calculator")
	s.FinalReport = "r"

	s.Reset()

	gt.Equal(t, s.Topic, "")
	gt.Equal(t, s.Model, "llama2")
	gt.Equal(t, len(s.Plan), 0)
	gt.Equal(t, s.Notes.Len(), 0)
	gt.Equal(t, len(s.Drafts), 0)
	gt.Equal(t, s.Retries(), 0)
	gt.Equal(t, len(s.ToolsUsed), 0)
	gt.Equal(t, s.FinalReport, "")
	gt.NotEqual(t, s.ID, id)
}
