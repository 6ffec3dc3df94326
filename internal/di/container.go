package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"campus-assistant/internal/adapter/campus_http"
	"campus-assistant/internal/adapter/llm"
	"campus-assistant/internal/adapter/repository"
	"campus-assistant/internal/domain"
	"campus-assistant/internal/infra/config"
	"campus-assistant/internal/infra/httpclient"
	"campus-assistant/internal/usecase"
	"campus-assistant/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	NewsRepo   domain.NewsRepository
	ReportRepo domain.ReportRepository
	Gateway    domain.LLMClient

	Retrieval usecase.RetrievalEngine
	Compiler  usecase.ReportCompiler
	Backfill  usecase.BackfillScheduler
	QA        usecase.QAService
	Ingestor  usecase.NewsIngestor

	Handler   *campus_http.Handler
	Scheduler *worker.Scheduler
}

// NewApplicationComponents wires all dependencies from config and database
// pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	newsRepo := repository.NewNewsRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	// Exactly one backend is active per process lifetime; re-selection
	// requires a restart.
	httpClient := httpclient.NewPooledClient(time.Duration(cfg.TimeoutSeconds+5) * time.Second)
	var backend domain.LLMClient
	var gatewayOpts []llm.GatewayOption
	if cfg.LLMProvider == "remote" {
		backend = llm.NewRemoteClient(cfg.APIBase, cfg.APIKey, cfg.ModelName, httpClient)
		gatewayOpts = append(gatewayOpts, llm.WithRateLimit(2, 4))
	} else {
		backend = llm.NewLocalClient(cfg.LocalURL, cfg.ModelPath, cfg.LoraPath, httpClient)
		// The local weights share one accelerator; serialize inference.
		gatewayOpts = append(gatewayOpts, llm.WithSingleInferenceSlot())
	}
	gateway := llm.NewGateway(backend, cfg.MaxRetries, cfg.TimeoutSeconds, log, gatewayOpts...)

	genConfig := usecase.GenerationConfig{
		Temperature: cfg.Temperature,
		MaxTokens:   1024,
		Seed:        cfg.Seed,
	}

	retrieval := usecase.NewRetrievalEngine(newsRepo, cfg.RetrievalMaxRecords, log)
	prompts := usecase.NewPromptBuilder()
	compiler := usecase.NewReportCompiler(reportRepo, gateway, prompts, genConfig, log)
	backfill := usecase.NewBackfillScheduler(reportRepo, retrieval, compiler, log)
	qa := usecase.NewQAService(retrieval, gateway, prompts, genConfig, cfg.QADefaultDays, cfg.QACacheSize, log)
	ingestor := usecase.NewNewsIngestor(newsRepo, domain.NewFingerprintPolicy(), log)

	handler := campus_http.NewHandler(qa, backfill, ingestor, reportRepo, log)
	scheduler := worker.NewScheduler(backfill, cfg.DailyJobCron, log)

	return &ApplicationComponents{
		NewsRepo:   newsRepo,
		ReportRepo: reportRepo,
		Gateway:    gateway,
		Retrieval:  retrieval,
		Compiler:   compiler,
		Backfill:   backfill,
		QA:         qa,
		Ingestor:   ingestor,
		Handler:    handler,
		Scheduler:  scheduler,
	}
}
