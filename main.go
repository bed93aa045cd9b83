package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/config"
	"github.com/expirywatch/expiry-engine/pkg/database"
	"github.com/expirywatch/expiry-engine/pkg/docsource"
	"github.com/expirywatch/expiry-engine/pkg/export"
	"github.com/expirywatch/expiry-engine/pkg/llm"
	"github.com/expirywatch/expiry-engine/pkg/logging"
	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/repositories"
	"github.com/expirywatch/expiry-engine/pkg/services"
	"github.com/expirywatch/expiry-engine/pkg/vectorstore"
)

// Version is set at build time via ldflags
var Version = "dev"

const migrationsPath = "migrations"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "expiry-engine",
		Short:   "Detect expiring knowledge in document collections",
		Version: Version,
		Long: "expiry-engine analyzes documents with an LLM to find outdated or\n" +
			"expiring knowledge, stores the findings in PostgreSQL and Qdrant,\n" +
			"and aggregates them into executive reports.",
		SilenceUsage: true,
	}

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newStatusCmd())
	return root
}

// engine holds everything a command needs once configuration, storage,
// and the model client are wired up.
type engine struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB
	store  *vectorstore.QdrantStore
	client llm.Client

	docRepo     repositories.DocumentRepository
	pointRepo   repositories.CriticalPointRepository
	recRepo     repositories.RecommendationRepository
	sessionRepo repositories.SessionRepository
	reportRepo  repositories.ReportRepository
}

func newEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	connString := cfg.Database.ConnectionString()
	if err := database.RunMigrations(connString, migrationsPath, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		ConnString:     connString,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	store, err := vectorstore.NewQdrantStore(ctx, &vectorstore.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		Collection: cfg.Qdrant.Collection,
		VectorSize: cfg.Qdrant.VectorSize,
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to vector store: %w", err)
	}

	client, err := llm.NewClient(&llm.Config{
		Provider:          cfg.AI.Provider,
		Endpoint:          cfg.AI.Endpoint,
		Model:             cfg.AI.Model,
		APIKey:            cfg.AI.APIKey,
		AnthropicAPIKey:   cfg.AI.AnthropicAPIKey,
		EmbeddingEndpoint: cfg.AI.EffectiveEmbeddingEndpoint(),
	}, logger)
	if err != nil {
		store.Close()
		db.Close()
		return nil, fmt.Errorf("create model client: %w", err)
	}

	return &engine{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		store:       store,
		client:      client,
		docRepo:     repositories.NewDocumentRepository(db),
		pointRepo:   repositories.NewCriticalPointRepository(db),
		recRepo:     repositories.NewRecommendationRepository(db),
		sessionRepo: repositories.NewSessionRepository(db),
		reportRepo:  repositories.NewReportRepository(db),
	}, nil
}

func (e *engine) close() {
	e.store.Close()
	e.db.Close()
	_ = e.logger.Sync()
}

// runWithEngine wires signal handling and teardown around one command.
func runWithEngine(run func(ctx context.Context, e *engine) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	return run(ctx, e)
}

func newAnalyzeCmd() *cobra.Command {
	var (
		recursive  bool
		extensions []string
	)

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Analyze documents under a directory for expiring knowledge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(func(ctx context.Context, e *engine) error {
				exts := extensions
				if len(exts) == 0 {
					exts = e.cfg.Analysis.FileExtensions()
				}

				discoverer := docsource.NewDiscoverer(e.cfg.Analysis.MaxFileSizeMB, e.logger)
				loader := docsource.NewLoader(e.logger)
				analyst := services.NewAnalyst(e.client, e.cfg.AI.EmbeddingModel, e.logger)
				svc := services.NewAnalyzeService(
					discoverer, loader, analyst, e.store,
					e.docRepo, e.pointRepo, e.recRepo, e.sessionRepo,
					e.cfg.AI.Model, e.cfg.Analysis.BatchSize, e.logger,
				)

				result, err := svc.Run(ctx, args[0], recursive, exts)
				if result != nil {
					printAnalyzeResult(cmd, result)
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories")
	cmd.Flags().StringSliceVarP(&extensions, "extensions", "e", nil,
		"file extensions to analyze (default from configuration)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		output     string
		format     string
		reportType string
		urgency    string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a knowledge expiry report from stored findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var minUrgency *models.UrgencyLevel
			if urgency != "" {
				level, err := models.ParseUrgencyLevel(urgency)
				if err != nil {
					return err
				}
				minUrgency = &level
			}
			if output == "" {
				output = defaultOutputPath(format)
			}

			return runWithEngine(func(ctx context.Context, e *engine) error {
				analyst := services.NewAnalyst(e.client, e.cfg.AI.EmbeddingModel, e.logger)
				svc := services.NewReportService(
					analyst, e.store,
					e.docRepo, e.pointRepo, e.recRepo, e.reportRepo,
					export.NewFileExporter(e.logger),
					e.cfg.AI.Model, e.logger,
				)

				result, err := svc.Generate(ctx, services.ReportOptions{
					OutputPath: output,
					Format:     format,
					ReportType: reportType,
					MinUrgency: minUrgency,
				})
				if result != nil {
					printReportResult(cmd, result)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default reports/<timestamp>)")
	cmd.Flags().StringVarP(&format, "format", "f", "excel", "output format: excel, json, or csv")
	cmd.Flags().StringVarP(&reportType, "type", "t", "comprehensive",
		"report type: executive, detailed, or comprehensive")
	cmd.Flags().StringVarP(&urgency, "urgency", "u", "",
		"only include critical points at or above this urgency")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine configuration and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEngine(func(ctx context.Context, e *engine) error {
				cmd.Printf("Provider:   %s\n", e.cfg.AI.Provider)
				cmd.Printf("Model:      %s (%s)\n", e.client.GetModel(), e.client.GetEndpoint())
				cmd.Printf("Embeddings: %s\n", e.cfg.AI.EmbeddingModel)
				cmd.Printf("Database:   %s@%s:%d/%s\n",
					e.cfg.Database.User, e.cfg.Database.Host,
					e.cfg.Database.Port, e.cfg.Database.Database)

				stats, err := e.store.Stats(ctx)
				if err != nil {
					return fmt.Errorf("read vector store stats: %w", err)
				}
				cmd.Printf("Qdrant:     %s:%d collection %q (%d points, vector size %d)\n",
					e.cfg.Qdrant.Host, e.cfg.Qdrant.Port,
					stats.Collection, stats.PointsCount, stats.VectorSize)

				counts, err := e.docRepo.CountByStatus(ctx)
				if err != nil {
					return fmt.Errorf("count documents: %w", err)
				}
				cmd.Println("\nDocuments by status:")
				for _, status := range []models.DocumentStatus{
					models.DocumentPending, models.DocumentProcessing,
					models.DocumentAnalyzed, models.DocumentError,
				} {
					if n := counts[status]; n > 0 {
						cmd.Printf("  %-12s %d\n", status, n)
					}
				}

				sessions, err := e.sessionRepo.ListRecent(ctx, 5)
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				cmd.Println("\nRecent analysis sessions:")
				if len(sessions) == 0 {
					cmd.Println("  (none)")
				}
				for _, s := range sessions {
					cmd.Printf("  %s  %-10s %3d docs, %3d points  %s\n",
						s.StartedAt.Format("2006-01-02 15:04"), s.Status,
						s.DocumentsAnalyzed, s.CriticalPointsFound, s.SessionID)
				}

				reports, err := e.reportRepo.ListRecent(ctx, 5)
				if err != nil {
					return fmt.Errorf("list reports: %w", err)
				}
				cmd.Println("\nRecent reports:")
				if len(reports) == 0 {
					cmd.Println("  (none)")
				}
				for _, r := range reports {
					cmd.Printf("  %s  %-10s %s\n",
						r.GeneratedAt.Format("2006-01-02 15:04"), r.Status, r.OutputPath)
				}
				return nil
			})
		},
	}
}

func printAnalyzeResult(cmd *cobra.Command, result *services.AnalyzeResult) {
	cmd.Printf("Session:          %s\n", result.SessionID)
	cmd.Printf("Files processed:  %d\n", result.FilesProcessed)
	cmd.Printf("Files failed:     %d\n", result.FilesFailed)
	cmd.Printf("Critical points:  %d\n", result.CriticalPoints)
	cmd.Printf("Documents stored: %d\n", result.DocumentsStored)
	for _, detail := range result.Errors {
		cmd.Printf("  ! %s\n", detail)
	}
}

func printReportResult(cmd *cobra.Command, result *services.ReportResult) {
	cmd.Printf("Report:            %s (%s)\n", result.ReportID, result.Status)
	if result.OutputPath != "" {
		cmd.Printf("Output:            %s\n", result.OutputPath)
	}
	cmd.Printf("Documents:         %d\n", result.DocumentsAnalyzed)
	cmd.Printf("Expired knowledge: %d\n", result.ExpiredKnowledge)
	cmd.Printf("Critical findings: %d\n", result.CriticalFindings)
	cmd.Printf("Recommendations:   %d\n", result.Recommendations)
	for _, detail := range result.Errors {
		cmd.Printf("  ! %s\n", detail)
	}
}

func defaultOutputPath(format string) string {
	ext := map[string]string{"excel": "xlsx", "json": "json", "csv": "csv"}[strings.ToLower(format)]
	if ext == "" {
		ext = "out"
	}
	return fmt.Sprintf("reports/knowledge_expiry_%s.%s", time.Now().Format("20060102_150405"), ext)
}
