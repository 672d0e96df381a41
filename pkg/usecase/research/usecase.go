package research

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/repository"
	"github.com/m-mizutani/scholar/pkg/tool"
	"github.com/m-mizutani/scholar/pkg/usecase/semantic"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
)

const saveMemoryTool = "save_memory"

// SemanticMemory recalls and stores past reports by meaning
type SemanticMemory interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
	Add(ctx context.Context, text string) error
}

// ToolGate decides whether a requested tool may run
type ToolGate interface {
	Allow(ctx context.Context, topic string, directive *model.Directive) (bool, error)
}

// UseCase runs a complete research: recall, pipeline, tool dispatch, memorize and log
type UseCase struct {
	pipeline    *Pipeline
	semantic    SemanticMemory
	registry    *tool.Registry
	gate        ToolGate
	runLog      repository.RunLogRepository
	recallLimit int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithSemanticMemory enables recall before planning and stores each final report
func WithSemanticMemory(m SemanticMemory) Option {
	return func(uc *UseCase) {
		uc.semantic = m
	}
}

// WithRegistry sets the tools the final draft may call
func WithRegistry(r *tool.Registry) Option {
	return func(uc *UseCase) {
		uc.registry = r
	}
}

// WithGate sets the policy consulted before dispatching a tool
func WithGate(g ToolGate) Option {
	return func(uc *UseCase) {
		uc.gate = g
	}
}

// WithRunLog sets where run records are appended
func WithRunLog(r repository.RunLogRepository) Option {
	return func(uc *UseCase) {
		uc.runLog = r
	}
}

// WithRecallLimit sets how many memories are recalled for the planner
func WithRecallLimit(n int) Option {
	return func(uc *UseCase) {
		if n > 0 {
			uc.recallLimit = n
		}
	}
}

// New creates a research UseCase
func New(pipeline *Pipeline, opts ...Option) *UseCase {
	uc := &UseCase{
		pipeline:    pipeline,
		registry:    tool.New(),
		recallLimit: semantic.DefaultLimit,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Result is the outcome of a research run
type Result struct {
	Session   *Session
	Report    string
	Retries   int
	ToolsUsed []string
	Duration  time.Duration
	Record    *model.RunRecord

	// DirectiveError is set when the final draft carried a malformed directive
	DirectiveError error
}

// Run researches topic with model in a fresh session
func (uc *UseCase) Run(ctx context.Context, topic, modelName string) (*Result, error) {
	return uc.RunSession(ctx, NewSession(topic, modelName))
}

// RunSession researches s.Topic. The session is restarted so earlier state does not leak into this run.
func (uc *UseCase) RunSession(ctx context.Context, s *Session) (*Result, error) {
	if s.Topic == "" {
		return nil, goerr.New("topic is empty")
	}
	s.start(s.Topic)

	logger := logging.From(ctx).With("run_id", s.ID, "topic", s.Topic, "model", s.Model)
	ctx = logging.With(ctx, logger)

	if uc.semantic != nil {
		memories, err := uc.semantic.Search(ctx, s.Topic, uc.recallLimit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to recall related research")
		}
		s.RelatedMemories = memories
		logger.Info("related research recalled", "stage", "recall", "count", len(memories))
	}

	if err := uc.pipeline.Run(ctx, s); err != nil {
		return nil, err
	}

	result := &Result{Session: s}

	report, err := uc.dispatch(ctx, s)
	if err != nil {
		if !errors.Is(err, tool.ErrMalformedDirective) {
			return nil, err
		}
		logger.Warn("malformed tool directive, using draft as report", logging.ErrAttr(err))
		result.DirectiveError = err
		report = s.LastDraft()
	}
	s.FinalReport = report

	if uc.semantic != nil {
		if err := uc.semantic.Add(ctx, report); err != nil {
			return nil, goerr.Wrap(err, "failed to store report in semantic memory")
		}
	}

	duration := s.Elapsed()
	record := model.NewRunRecord(s.Topic, s.Model, s.Retries(), s.ToolsUsed, duration)
	record.ID = s.ID
	if uc.runLog != nil {
		if err := uc.runLog.Append(ctx, record); err != nil {
			return nil, goerr.Wrap(err, "failed to append run log")
		}
	}

	result.Report = report
	result.Retries = s.Retries()
	result.ToolsUsed = s.ToolsUsed
	result.Duration = duration
	result.Record = record

	logger.Info("research finished",
		"retries", result.Retries,
		"tools_used", result.ToolsUsed,
		"duration_sec", record.DurationSec,
	)

	return result, nil
}

// dispatch routes the last draft to a tool and returns the final report text
func (uc *UseCase) dispatch(ctx context.Context, s *Session) (string, error) {
	logger := logging.From(ctx)
	draft := s.LastDraft()

	directive, err := tool.Route(draft)
	if err != nil {
		return "", err
	}
	if directive == nil {
		return draft, nil
	}

	report := draft
	if directive.Tool == saveMemoryTool {
		report = directive.Arg("summary", "")
	}

	if !uc.registry.Has(directive.Tool) {
		logger.Warn("unknown tool requested, using draft as report", "tool", directive.Tool)
		return report, nil
	}

	if uc.gate != nil {
		allowed, err := uc.gate.Allow(ctx, s.Topic, directive)
		if err != nil {
			return "", err
		}
		if !allowed {
			logger.Warn("tool denied by policy, using draft as report", "tool", directive.Tool)
			return report, nil
		}
	}

	out, err := uc.registry.Execute(ctx, directive.Tool, &tool.Input{
		Topic:  s.Topic,
		Report: report,
		Args:   directive.Args,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to execute tool", goerr.V("tool", directive.Tool))
	}

	s.ToolsUsed = append(s.ToolsUsed, directive.Tool)
	logger.Info("tool executed", "stage", "dispatch", "tool", directive.Tool)

	return out, nil
}
