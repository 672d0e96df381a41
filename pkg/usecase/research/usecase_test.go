package research_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/policy"
	"github.com/m-mizutani/scholar/pkg/repository"
	"github.com/m-mizutani/scholar/pkg/tool"
	"github.com/m-mizutani/scholar/pkg/usecase/research"
)

type fakeSemantic struct {
	recall  []string
	added   []string
	queries []string
	limits  []int
	err     error
}

func (m *fakeSemantic) Search(ctx context.Context, query string, k int) ([]string, error) {
	m.queries = append(m.queries, query)
	m.limits = append(m.limits, k)
	return m.recall, m.err
}

func (m *fakeSemantic) Add(ctx context.Context, text string) error {
	m.added = append(m.added, text)
	return nil
}

type fixture struct {
	llm      *scriptedLLM
	semantic *fakeSemantic
	memory   *repository.FileMemory
	runLog   *repository.FileRunLog
	dir      string
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	return &fixture{
		llm:      newScript(),
		semantic: &fakeSemantic{},
		memory:   repository.NewFileMemory(filepath.Join(dir, "agent_memory.json")),
		runLog:   repository.NewFileRunLog(filepath.Join(dir, "agent_logs.json")),
		dir:      dir,
	}
}

func (f *fixture) useCase(opts ...research.Option) *research.UseCase {
	registry := tool.New(tool.NewSaveMemory(f.memory), tool.NewCalculator(), tool.NewWriteFile())
	base := []research.Option{
		research.WithSemanticMemory(f.semantic),
		research.WithRegistry(registry),
		research.WithRunLog(f.runLog),
	}
	pipeline := research.NewPipeline(f.llm, research.WithToolPrompt(registry.Prompts(context.Background())))
	return research.New(pipeline, append(base, opts...)...)
}

func TestRunPlainReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.semantic.recall = []string{"older quantum report"}

	result, err := f.useCase().Run(ctx, "Quantum Computing", "mistral")
	gt.NoError(t, err)

	gt.Equal(t, result.Report, "# Report")
	gt.Equal(t, result.Retries, 0)
	gt.Equal(t, len(result.ToolsUsed), 0)
	gt.Nil(t, result.DirectiveError)

	gt.Equal(t, f.semantic.queries, []string{"Quantum Computing"})
	gt.Equal(t, f.semantic.limits, []int{3})
	gt.Equal(t, f.semantic.added, []string{"# Report"})
	gt.S(t, f.llm.prompts["plan"][0]).Contains("- older quantum report")

	records, err := f.runLog.List(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(records), 1)
	gt.Equal(t, records[0].Topic, "Quantum Computing")
	gt.Equal(t, records[0].Model, "mistral")
	gt.Equal(t, records[0].Retries, 0)
	gt.Equal(t, records[0].ToolsUsed, []string{})
	gt.Equal(t, records[0].ID, result.Session.ID)
}

func TestRunLogGrowsByOnePerRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.verdict = []string{"RETRY"}
	uc := f.useCase()

	for i := 1; i <= 2; i++ {
		result, err := uc.Run(ctx, "Climate Change", "llama2")
		gt.NoError(t, err)
		gt.Equal(t, result.Retries, 3)

		records, err := f.runLog.List(ctx)
		gt.NoError(t, err)
		gt.Equal(t, len(records), i)
		gt.Equal(t, records[i-1].Retries, 3)
	}
}

func TestRunSaveMemory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.drafts = []string{"TOOL:save_memory\n---\ntopic=Ignored\nsummary=Line 1\\nLine 2"}

	result, err := f.useCase().Run(ctx, "Quantum Computing", "mistral")
	gt.NoError(t, err)

	gt.Equal(t, result.Report, "Line 1\nLine 2")
	gt.Equal(t, result.ToolsUsed, []string{"save_memory"})
	gt.Equal(t, f.semantic.added, []string{"Line 1\nLine 2"})

	saved, err := f.memory.Load(ctx)
	gt.NoError(t, err)
	gt.Equal(t, saved["Quantum Computing"], "Line 1\nLine 2")

	records, err := f.runLog.List(ctx)
	gt.NoError(t, err)
	gt.Equal(t, records[0].ToolsUsed, []string{"save_memory"})
}

func TestRunCalculator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.drafts = []string{"TOOL:calculator\n---\nexpression=6*7"}

	result, err := f.useCase().Run(ctx, "Arithmetic", "mistral")
	gt.NoError(t, err)
	gt.Equal(t, result.Report, "Calculation result: 42")
	gt.Equal(t, result.ToolsUsed, []string{"calculator"})
}

func TestRunWriteFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := filepath.Join(f.dir, "notes.md")
	f.llm.drafts = []string{"TOOL:write_file\n---\nfilename=" + path + "\ncontent=# Notes"}

	result, err := f.useCase().Run(ctx, "Notes", "mistral")
	gt.NoError(t, err)
	gt.Equal(t, result.Report, "File '"+path+"' written successfully.")

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, string(data), "# Notes")
}

func TestRunToolDispatchedOnlyForLastDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.drafts = []string{
		"TOOL:save_memory\n---\ntopic=x\nsummary=first",
		"plain second draft",
	}
	f.llm.verdict = []string{"RETRY", "ACCEPT"}

	result, err := f.useCase().Run(ctx, "Quantum Computing", "mistral")
	gt.NoError(t, err)
	gt.Equal(t, result.Report, "plain second draft")
	gt.Equal(t, len(result.ToolsUsed), 0)

	saved, err := f.memory.Load(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(saved), 0)
}

func TestRunMalformedDirective(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := "TOOL:calculator\n---\nthis line has no separator"
	f.llm.drafts = []string{draft}

	result, err := f.useCase().Run(ctx, "Arithmetic", "mistral")
	gt.NoError(t, err)
	gt.Equal(t, result.Report, draft)
	gt.True(t, errors.Is(result.DirectiveError, tool.ErrMalformedDirective))
	gt.Equal(t, len(result.ToolsUsed), 0)
}

func TestRunUnknownTool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := "TOOL:shell\n---\ncmd=ls"
	f.llm.drafts = []string{draft}

	result, err := f.useCase().Run(ctx, "Shell", "mistral")
	gt.NoError(t, err)
	gt.Equal(t, result.Report, draft)
	gt.Equal(t, len(result.ToolsUsed), 0)
}

func TestRunPolicyDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := filepath.Join(f.dir, "run.sh")
	draft := "TOOL:write_file\n---\nfilename=" + path + "\ncontent=rm -rf /"
	f.llm.drafts = []string{draft}

	gate, err := policy.NewFromSource(ctx, "tool.rego", `package tool

allow if input.tool != "write_file"
`)
	gt.NoError(t, err)

	result, err := f.useCase(research.WithGate(gate)).Run(ctx, "Scripts", "mistral")
	gt.NoError(t, err)
	gt.Equal(t, result.Report, draft)
	gt.Equal(t, len(result.ToolsUsed), 0)

	_, err = os.Stat(path)
	gt.True(t, os.IsNotExist(err))
}

func TestRunRecallError(t *testing.T) {
	f := newFixture(t)
	f.semantic.err = errors.New("embedding service down")

	_, err := f.useCase().Run(context.Background(), "Quantum Computing", "mistral")
	gt.Error(t, err)
	gt.Equal(t, f.llm.calls("plan"), 0)
}

func TestRunEmptyTopic(t *testing.T) {
	f := newFixture(t)
	_, err := f.useCase().Run(context.Background(), "", "mistral")
	gt.Error(t, err)
}

func TestRunSessionReuse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.useCase(research.WithRecallLimit(5))

	s := research.NewSession("First", "mistral")
	_, err := uc.RunSession(ctx, s)
	gt.NoError(t, err)
	firstID := s.ID

	s.Topic = "Second"
	s.Model = "neural-chat"
	result, err := uc.RunSession(ctx, s)
	gt.NoError(t, err)
	gt.NotEqual(t, result.Session.ID, firstID)
	gt.Equal(t, len(s.Drafts), 1)
	gt.Equal(t, f.semantic.limits, []int{5, 5})

	records, err := f.runLog.List(ctx)
	gt.NoError(t, err)
	gt.Equal(t, records[1].Model, "neural-chat")
}
