package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/scholarag/scholarag/pkg/agent"
	"github.com/scholarag/scholarag/pkg/config"
	"github.com/scholarag/scholarag/pkg/embedders"
	"github.com/scholarag/scholarag/pkg/ingest"
	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/logger"
	"github.com/scholarag/scholarag/pkg/observability"
	"github.com/scholarag/scholarag/pkg/search"
	"github.com/scholarag/scholarag/pkg/server"
	"github.com/scholarag/scholarag/pkg/store"
	"github.com/scholarag/scholarag/pkg/tools"
)

var version = "dev"

type CLI struct {
	Config  string `short:"c" help:"Path to YAML config file." type:"path"`
	EnvFile string `help:"Path to .env file." default:".env" type:"path"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP server."`
	Ingest  IngestCmd  `cmd:"" help:"Ingest papers from arXiv by ID."`
	Version VersionCmd `cmd:"" help:"Print the version."`
}

type ServeCmd struct{}

type IngestCmd struct {
	IDs []string `arg:"" name:"arxiv-id" help:"arXiv identifiers to ingest."`
}

type VersionCmd struct{}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("scholarag"),
		kong.Description("Retrieval-augmented research paper assistant."),
		kong.UsageOnError(),
	)

	if err := kctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (v *VersionCmd) Run(cli *CLI) error {
	fmt.Println("scholarag", version)
	return nil
}

func (s *ServeCmd) Run(cli *CLI) error {
	app, cleanup, err := buildApp(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.server.ListenAndServe(ctx)
}

func (i *IngestCmd) Run(cli *CLI) error {
	app, cleanup, err := buildApp(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingested, err := app.ingest.IngestByIDs(ctx, i.IDs)
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d papers\n", ingested)
	return nil
}

type app struct {
	server *server.Server
	ingest *ingest.Service
}

func buildApp(cli *CLI) (*app, func(), error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load(cli.EnvFile)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, nil, err
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel), os.Stderr, cfg.LogFormat)

	ctx := context.Background()
	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.Observability.TracingEnabled,
		ServiceName: cfg.Observability.ServiceName,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to init tracer: %w", err)
	}
	metrics, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		Enabled:     cfg.Observability.MetricsEnabled,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	observability.SetGlobalMetrics(metrics)

	st, err := store.NewFromConfig(&cfg.Database, cfg.Embedder.Dimension)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	providers, err := llms.NewRegistryFromConfig(&cfg.LLM)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	embedder, err := embedders.NewEmbedderFromConfig(&cfg.Embedder)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	defaultLLM, err := providers.Resolve("")
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	arxivClient := ingest.NewArxivClient()
	searchService := search.NewService(st, embedder, cfg.Search.RRFK, cfg.Search.MinScore)
	ingestService := ingest.NewService(
		arxivClient,
		ingest.NewChunker(&cfg.Ingest),
		embedder,
		st,
	)

	registry := tools.NewToolRegistry()
	for _, tool := range []tools.Tool{
		tools.NewRetrieveTool(searchService, cfg.Agent.TopK*2),
		tools.NewWebSearchTool(),
		tools.NewListPapersTool(st),
		tools.NewArxivSearchTool(arxivClient),
		tools.NewSummarizePaperTool(st, defaultLLM),
		tools.NewIngestTool(ingestService),
	} {
		if err := registry.RegisterTool(tool); err != nil {
			st.Close()
			return nil, nil, err
		}
	}

	agentService := agent.NewService(providers, registry, st, agent.OptionsFromConfig(&cfg.Agent))
	srv := server.New(&cfg.Server, agentService, st)

	cleanup := func() {
		providers.Close()
		st.Close()
	}
	return &app{server: srv, ingest: ingestService}, cleanup, nil
}
