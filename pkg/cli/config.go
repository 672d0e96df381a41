package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/adapter"
	"github.com/m-mizutani/scholar/pkg/policy"
	"github.com/m-mizutani/scholar/pkg/repository"
	"github.com/m-mizutani/scholar/pkg/tool"
	"github.com/m-mizutani/scholar/pkg/usecase/research"
	"github.com/m-mizutani/scholar/pkg/usecase/semantic"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	providerOllama = "ollama"
	providerGemini = "gemini"

	backendFile      = "file"
	backendFirestore = "firestore"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// LLM
	llmProvider       string
	model             string
	ollamaHost        string
	geminiProject     string
	geminiLocation    string
	embeddingProvider string
	embeddingModel    string

	// Repository
	backend    string
	memoryPath string
	indexPath  string
	dataPath   string
	logPath    string
	project    string
	database   string

	// Pipeline
	promptsPath   string
	policyDir     string
	strictVerdict bool
	maxRetries    int64
	recallLimit   int64

	firestore *repository.Firestore
}

// loggingFlags returns flags controlling log output
func loggingFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("SCHOLAR_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("SCHOLAR_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// globalFlags returns storage flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "Memory and run log backend (file, firestore)",
			Value:       backendFile,
			Sources:     cli.EnvVars("SCHOLAR_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "memory-file",
			Usage:       "Path of the key-value memory file",
			Value:       "agent_memory.json",
			Sources:     cli.EnvVars("SCHOLAR_MEMORY_FILE"),
			Destination: &cfg.memoryPath,
		},
		&cli.StringFlag{
			Name:        "index-file",
			Usage:       "Path of the semantic vector index file",
			Value:       "semantic_index.bin",
			Sources:     cli.EnvVars("SCHOLAR_INDEX_FILE"),
			Destination: &cfg.indexPath,
		},
		&cli.StringFlag{
			Name:        "data-file",
			Usage:       "Path of the semantic text list file",
			Value:       "semantic_data.json",
			Sources:     cli.EnvVars("SCHOLAR_DATA_FILE"),
			Destination: &cfg.dataPath,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Path of the run log file",
			Value:       "agent_logs.json",
			Sources:     cli.EnvVars("SCHOLAR_LOG_FILE"),
			Destination: &cfg.logPath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID (firestore backend)",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
	return append(flags, loggingFlags(cfg)...)
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider (ollama, gemini)",
			Value:       providerOllama,
			Sources:     cli.EnvVars("SCHOLAR_LLM_PROVIDER"),
			Destination: &cfg.llmProvider,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Model name (default: mistral for ollama, " + adapter.DefaultGeminiModel + " for gemini)",
			Sources:     cli.EnvVars("SCHOLAR_MODEL"),
			Destination: &cfg.model,
		},
		&cli.StringFlag{
			Name:        "ollama-host",
			Usage:       "Ollama server URL (default: OLLAMA_HOST or http://127.0.0.1:11434)",
			Sources:     cli.EnvVars("SCHOLAR_OLLAMA_HOST"),
			Destination: &cfg.ollamaHost,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "embedding-provider",
			Usage:       "Embedding provider (ollama, gemini)",
			Value:       providerOllama,
			Sources:     cli.EnvVars("SCHOLAR_EMBEDDING_PROVIDER"),
			Destination: &cfg.embeddingProvider,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name",
			Value:       adapter.DefaultOllamaEmbeddingModel,
			Sources:     cli.EnvVars("SCHOLAR_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// pipelineFlags returns flags tuning the research pipeline
func pipelineFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "prompts",
			Usage:       "YAML file overriding the planner, researcher, writer and critic prompts",
			Sources:     cli.EnvVars("SCHOLAR_PROMPTS"),
			Destination: &cfg.promptsPath,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies deciding data.tool.allow",
			Sources:     cli.EnvVars("SCHOLAR_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.BoolFlag{
			Name:        "strict-verdict",
			Usage:       "Abort when the critic answers neither ACCEPT nor RETRY",
			Sources:     cli.EnvVars("SCHOLAR_STRICT_VERDICT"),
			Destination: &cfg.strictVerdict,
		},
		&cli.IntFlag{
			Name:        "max-retries",
			Usage:       "Extra write/critique rounds after the first",
			Value:       research.DefaultMaxRetries,
			Sources:     cli.EnvVars("SCHOLAR_MAX_RETRIES"),
			Destination: &cfg.maxRetries,
		},
		&cli.IntFlag{
			Name:        "recall-limit",
			Usage:       "Number of related past reports given to the planner",
			Value:       semantic.DefaultLimit,
			Sources:     cli.EnvVars("SCHOLAR_RECALL_LIMIT"),
			Destination: &cfg.recallLimit,
		},
	}
}

// setupLogger builds the logger from flags, installs it as default and attaches it to ctx
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) context.Context {
	logger := logging.New(w, logging.WithLevel(cfg.logLevel), logging.WithFormat(cfg.logFormat))
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// modelName returns the configured model or the provider default
func (cfg *config) modelName() string {
	if cfg.model != "" {
		return cfg.model
	}
	if cfg.llmProvider == providerGemini {
		return adapter.DefaultGeminiModel
	}
	return adapter.DefaultOllamaModel
}

// newLLM creates the completion client for the configured provider
func (cfg *config) newLLM(ctx context.Context) (adapter.LLM, error) {
	switch cfg.llmProvider {
	case providerOllama, "":
		return cfg.newOllama()
	case providerGemini:
		return cfg.newGemini(ctx)
	default:
		return nil, goerr.New("unsupported llm provider", goerr.V("provider", cfg.llmProvider))
	}
}

// newEmbedder creates the embedding client for the configured provider
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	switch cfg.embeddingProvider {
	case providerOllama, "":
		return cfg.newOllama()
	case providerGemini:
		return cfg.newGemini(ctx)
	default:
		return nil, goerr.New("unsupported embedding provider", goerr.V("provider", cfg.embeddingProvider))
	}
}

// newOllama creates a new Ollama adapter instance
func (cfg *config) newOllama() (*adapter.Ollama, error) {
	client, err := adapter.NewOllama(cfg.ollamaHost, adapter.WithOllamaEmbeddingModel(cfg.embeddingModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create ollama client")
	}
	return client, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (*adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	opts := []adapter.GeminiOption{adapter.WithGenerativeModel(cfg.modelName())}
	if cfg.embeddingProvider == providerGemini && cfg.embeddingModel != adapter.DefaultOllamaEmbeddingModel {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}

	client, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return client, nil
}

// newFirestore creates the Firestore repository once and shares it between memory and run log
func (cfg *config) newFirestore(ctx context.Context) (*repository.Firestore, error) {
	if cfg.firestore != nil {
		return cfg.firestore, nil
	}
	if cfg.project == "" {
		return nil, goerr.New("project is required for firestore backend")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required for firestore backend")
	}

	repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	cfg.firestore = repo
	return repo, nil
}

// newMemoryRepository creates the key-value memory store for the configured backend
func (cfg *config) newMemoryRepository(ctx context.Context) (repository.MemoryRepository, error) {
	switch cfg.backend {
	case backendFile, "":
		return repository.NewFileMemory(cfg.memoryPath), nil
	case backendFirestore:
		return cfg.newFirestore(ctx)
	default:
		return nil, goerr.New("unsupported backend", goerr.V("backend", cfg.backend))
	}
}

// newRunLog creates the run log for the configured backend
func (cfg *config) newRunLog(ctx context.Context) (repository.RunLogRepository, error) {
	switch cfg.backend {
	case backendFile, "":
		return repository.NewFileRunLog(cfg.logPath), nil
	case backendFirestore:
		return cfg.newFirestore(ctx)
	default:
		return nil, goerr.New("unsupported backend", goerr.V("backend", cfg.backend))
	}
}

// newSemantic creates the semantic memory store
func (cfg *config) newSemantic(ctx context.Context) (*semantic.Store, error) {
	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	return semantic.New(embedder, cfg.indexPath, cfg.dataPath), nil
}

// newGate loads tool policies, nil when no policy directory is configured
func (cfg *config) newGate(ctx context.Context) (*policy.Gate, error) {
	gate, err := policy.New(ctx, cfg.policyDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load tool policy", goerr.V("dir", cfg.policyDir))
	}
	return gate, nil
}

// newPrompts returns prompt overrides or the built-in prompts
func (cfg *config) newPrompts() (*research.Prompts, error) {
	if cfg.promptsPath == "" {
		return research.DefaultPrompts(), nil
	}
	return research.LoadPrompts(cfg.promptsPath)
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context, bucketName string) (adapter.Storage, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	storage, err := adapter.NewStorage(ctx, bucketName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newResearch wires the pipeline, stores, tools and policy into a research UseCase
func (cfg *config) newResearch(ctx context.Context, tools ...tool.Tool) (*research.UseCase, error) {
	llm, err := cfg.newLLM(ctx)
	if err != nil {
		return nil, err
	}

	memory, err := cfg.newMemoryRepository(ctx)
	if err != nil {
		return nil, err
	}

	runLog, err := cfg.newRunLog(ctx)
	if err != nil {
		return nil, err
	}

	store, err := cfg.newSemantic(ctx)
	if err != nil {
		return nil, err
	}

	gate, err := cfg.newGate(ctx)
	if err != nil {
		return nil, err
	}

	prompts, err := cfg.newPrompts()
	if err != nil {
		return nil, err
	}

	registry := tool.New(append([]tool.Tool{tool.NewSaveMemory(memory)}, tools...)...)

	pipelineOpts := []research.PipelineOption{
		research.WithPrompts(prompts),
		research.WithMaxRetries(int(cfg.maxRetries)),
		research.WithToolPrompt(registry.Prompts(ctx)),
	}
	if cfg.strictVerdict {
		pipelineOpts = append(pipelineOpts, research.WithStrictVerdict())
	}

	opts := []research.Option{
		research.WithSemanticMemory(store),
		research.WithRegistry(registry),
		research.WithRunLog(runLog),
		research.WithRecallLimit(int(cfg.recallLimit)),
	}
	if gate != nil {
		opts = append(opts, research.WithGate(gate))
	}

	return research.New(research.NewPipeline(llm, pipelineOpts...), opts...), nil
}

// close releases clients opened by the config
func (cfg *config) close() {
	if cfg.firestore != nil {
		if err := cfg.firestore.Close(); err != nil {
			logging.Default().Warn("failed to close firestore client", logging.ErrAttr(err))
		}
		cfg.firestore = nil
	}
}
