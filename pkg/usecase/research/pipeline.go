package research

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/adapter"
	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/tool"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
)

// DefaultMaxRetries bounds the write/critique loop to DefaultMaxRetries+1 rounds
const DefaultMaxRetries = 2

var ErrUnexpectedVerdict = goerr.New("unexpected critic verdict")

// Pipeline runs PLAN, RESEARCH and the bounded WRITE/CRITIQUE loop over a Session
type Pipeline struct {
	llm        adapter.LLM
	prompts    *Prompts
	maxRetries int
	strict     bool
	toolPrompt string
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithMaxRetries sets how many extra write/critique rounds are allowed after the first
func WithMaxRetries(n int) PipelineOption {
	return func(p *Pipeline) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithStrictVerdict makes a critic reply other than ACCEPT or RETRY abort the run
func WithStrictVerdict() PipelineOption {
	return func(p *Pipeline) {
		p.strict = true
	}
}

// WithPrompts replaces the stage templates
func WithPrompts(prompts *Prompts) PipelineOption {
	return func(p *Pipeline) {
		if prompts != nil {
			p.prompts = prompts
		}
	}
}

// WithToolPrompt sets the tool usage text appended to the writer prompt
func WithToolPrompt(text string) PipelineOption {
	return func(p *Pipeline) {
		p.toolPrompt = text
	}
}

// NewPipeline creates a Pipeline backed by llm
func NewPipeline(llm adapter.LLM, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		llm:        llm,
		prompts:    DefaultPrompts(),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage. The last draft is left in the session; tools are not dispatched here.
func (p *Pipeline) Run(ctx context.Context, s *Session) error {
	if err := p.Plan(ctx, s); err != nil {
		return err
	}
	if err := p.Research(ctx, s); err != nil {
		return err
	}
	return p.Review(ctx, s)
}

// Plan asks for subtopics of the session topic, with recalled memories as context
func (p *Pipeline) Plan(ctx context.Context, s *Session) error {
	logger := logging.From(ctx)

	prompt, err := p.prompts.plan(s.Topic, s.MemoryContext())
	if err != nil {
		return err
	}

	text, err := p.llm.Generate(ctx, s.Model, prompt)
	if err != nil {
		return goerr.Wrap(err, "failed to generate research plan", goerr.V("topic", s.Topic))
	}

	s.Plan = ParsePlan(text)
	logger.Info("research plan generated", "stage", "plan", "subtopics", len(s.Plan))
	logger.Debug("research plan", "plan", s.Plan)

	return nil
}

// ParsePlan splits planner output into subtopics, stripping bullet markers and blank lines
func ParsePlan(text string) model.Plan {
	plan := model.Plan{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		subtopic := strings.TrimSpace(strings.Trim(line, "- "))
		if subtopic == "" {
			continue
		}
		plan = append(plan, subtopic)
	}
	return plan
}

// Research gathers notes for each subtopic in plan order
func (p *Pipeline) Research(ctx context.Context, s *Session) error {
	logger := logging.From(ctx)

	for i, subtopic := range s.Plan {
		prompt, err := p.prompts.research(s.Topic, subtopic)
		if err != nil {
			return err
		}

		notes, err := p.llm.Generate(ctx, s.Model, prompt)
		if err != nil {
			return goerr.Wrap(err, "failed to research subtopic",
				goerr.V("topic", s.Topic), goerr.V("subtopic", subtopic))
		}

		s.Notes.Set(subtopic, notes)
		logger.Info("subtopic researched", "stage", "research", "index", i+1, "total", len(s.Plan), "subtopic", subtopic)
		logger.Debug("research notes", "subtopic", subtopic, "notes", notes)
	}

	return nil
}

// Review runs the write/critique loop until ACCEPT or the retry bound is reached
func (p *Pipeline) Review(ctx context.Context, s *Session) error {
	logger := logging.From(ctx)

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		draft, err := p.Write(ctx, s)
		if err != nil {
			return err
		}
		s.Drafts = append(s.Drafts, draft)

		verdict, err := p.Critique(ctx, s, CritiqueText(ctx, draft))
		if err != nil {
			return err
		}
		s.Verdicts = append(s.Verdicts, verdict)

		logger.Info("draft reviewed", "stage", "critique", "attempt", attempt+1, "verdict", verdict)
		if verdict == model.VerdictAccept {
			return nil
		}
	}

	logger.Info("retry limit reached, keeping last draft", "stage", "critique", "max_retries", p.maxRetries)
	return nil
}

// Write produces one draft from the topic and all notes
func (p *Pipeline) Write(ctx context.Context, s *Session) (string, error) {
	prompt, err := p.prompts.write(s.Topic, s.Notes.Combined(), p.toolPrompt)
	if err != nil {
		return "", err
	}

	draft, err := p.llm.Generate(ctx, s.Model, prompt)
	if err != nil {
		return "", goerr.Wrap(err, "failed to write report", goerr.V("topic", s.Topic))
	}

	logging.From(ctx).Debug("draft written", "stage", "write", "length", len(draft))
	return draft, nil
}

// Critique classifies report. An unknown reply is retried unless the pipeline is strict.
func (p *Pipeline) Critique(ctx context.Context, s *Session, report string) (model.Verdict, error) {
	prompt, err := p.prompts.critique(s.Topic, report)
	if err != nil {
		return "", err
	}

	raw, err := p.llm.Generate(ctx, s.Model, prompt)
	if err != nil {
		return "", goerr.Wrap(err, "failed to critique report", goerr.V("topic", s.Topic))
	}

	verdict := model.ParseVerdict(raw)
	if verdict != model.VerdictUnknown {
		return verdict, nil
	}

	if p.strict {
		return "", goerr.Wrap(ErrUnexpectedVerdict, "critic returned neither ACCEPT nor RETRY", goerr.V("verdict", raw))
	}

	logging.From(ctx).Warn("unexpected critic verdict, treating as RETRY", "stage", "critique", "verdict", raw)
	return model.VerdictUnknown, nil
}

// CritiqueText returns what the critic should read for a draft: the summary of a
// save_memory directive, otherwise the draft itself.
func CritiqueText(ctx context.Context, draft string) string {
	directive, err := tool.Route(draft)
	if err != nil {
		logging.From(ctx).Debug("draft has malformed directive", logging.ErrAttr(err))
		return draft
	}
	if directive != nil && directive.Tool == saveMemoryTool {
		return directive.Arg("summary", "")
	}
	return draft
}
