package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"kgbuilder/internal/cache/expansion"
	"kgbuilder/internal/config"
	"kgbuilder/internal/llm"
	llmclient "kgbuilder/internal/llmClient"
	"kgbuilder/internal/oracle"
	kgp "kgbuilder/internal/pipeline/kg"
	"kgbuilder/internal/platform/logger"
	"kgbuilder/internal/sink"
	"kgbuilder/internal/types/kg"
	"kgbuilder/internal/viz"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("kgbuild failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	seeds, err := loadSeeds(cfg.Files)
	if err != nil {
		return err
	}
	log.Info("seeds loaded", "count", len(seeds), "resume", cfg.Files.Resume)

	base, err := newLLM(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}
	defer base.Close()

	cache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	if cfg.LLM.PromptDir != "" {
		ctx = llm.WithHook(ctx, &llm.PromptSaver{Dir: cfg.LLM.PromptDir})
	}
	orc := oracle.New(base, cache, oracle.Config{
		MaxRetries: cfg.Build.MaxRetries,
		BaseDelay:  cfg.Build.RetryBaseDelay,
		MaxDelay:   cfg.Build.RetryMaxDelay,
	}, log)
	builder := kgp.NewBuilder(orc, kgp.Config{
		MaxNodes:       cfg.Build.MaxNodes,
		RecursiveDepth: cfg.Build.RecursiveDepth,
		PaceDelay:      cfg.Build.PaceDelay,
		MaxCycles:      cfg.Build.MaxCycles,
	}, log)

	buildCtx := ctx
	if cfg.Build.RunTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, cfg.Build.RunTimeout)
		defer cancel()
	}
	res, buildErr := builder.Build(buildCtx, seeds)
	if buildErr != nil {
		log.Warn("build stopped early; writing the partial graph", "error", buildErr)
	}

	// Sinks get their own context so a run deadline does not also cancel
	// the writes of what was built.
	if err := persist(context.WithoutCancel(ctx), cfg, res, log); err != nil {
		return errors.Join(buildErr, err)
	}
	return buildErr
}

func loadSeeds(fc config.FileConfig) ([]kg.Seed, error) {
	if fc.Resume {
		nodes, err := kg.LoadNodes(fc.OutFile)
		if err != nil {
			return nil, fmt.Errorf("resume from %s: %w", fc.OutFile, err)
		}
		return kg.SeedsFromNodes(nodes), nil
	}
	return kg.LoadSeeds(fc.SeedFile)
}

// newLLM builds the provider client and its transport middleware. Retry
// and reply validation are added by the oracle on top of this chain.
func newLLM(ctx context.Context, lc config.LLMConfig, log *logger.Logger) (llmclient.LLMClient, error) {
	provider, err := llmclient.New(ctx, lc.Provider, lc.APIKey, lc.Model)
	if err != nil {
		return nil, err
	}
	mws := []llm.Middleware{
		llm.WithTracing(),
		llm.WithLogging(log),
		llm.WithHooks(),
		llm.RateLimitFromEnv("LLM", "GROQ", "GEMINI"),
	}
	if aware, ok := provider.(llmclient.RateLimitHeaderAwareClient); ok {
		mws = append(mws, llm.RespectRateLimitSignals(aware, nil))
	}
	log.Info("oracle provider ready", "provider", provider.Name())
	return llm.Wrap(provider, mws...), nil
}

func openCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (*expansion.Cache, func(), error) {
	var (
		store   expansion.Store
		source  string
		closeFn = func() {}
	)
	if cfg.Redis.URL != "" {
		rs, err := expansion.DialRedis(ctx, cfg.Redis.URL, cfg.Redis.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis cache: %w", err)
		}
		store = rs
		source = "redis:" + cfg.Redis.Key
		closeFn = func() { _ = rs.Close() }
	} else {
		fs, err := expansion.NewFileStore(cfg.Files.CacheFile)
		if err != nil {
			return nil, nil, err
		}
		store = fs
		source = fs.Path()
	}
	cache := expansion.New(store)
	n, err := cache.Load(ctx)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("load oracle cache: %w", err)
	}
	log.Info("oracle cache loaded", "source", source, "entries", n)
	return cache, closeFn, nil
}

func persist(ctx context.Context, cfg *config.Config, res *kgp.Result, log *logger.Logger) error {
	batch := sink.Batch{RunID: res.RunID, Nodes: res.Nodes, Edges: res.Graph.Edges(), Files: map[string][]byte{}}

	finalJSON, err := sink.EncodeNodes(batch)
	if err != nil {
		return err
	}
	batch.Files[filepath.Base(cfg.Files.OutFile)] = finalJSON
	html, err := viz.HTML(batch.Nodes, batch.Edges, viz.Options{})
	if err != nil {
		return err
	}
	batch.Files["kg_vis.html"] = html

	// Local files first so the graph survives a failing remote sink.
	if err := sink.NewJSONFile(cfg.Files.OutFile).Write(ctx, batch); err != nil {
		return &sink.PersistenceError{Sink: "file", Err: err}
	}
	log.Info("finalized graph written", "path", cfg.Files.OutFile, "nodes", len(batch.Nodes))
	if cfg.Files.VisFile != "" {
		if err := writeFile(cfg.Files.VisFile, html); err != nil {
			return &sink.PersistenceError{Sink: "vis", Err: err}
		}
	}
	if cfg.Files.DotFile != "" {
		if err := writeFile(cfg.Files.DotFile, viz.DOT(batch.Nodes, batch.Edges)); err != nil {
			return &sink.PersistenceError{Sink: "dot", Err: err}
		}
	}

	sinks, openErr := openSinks(ctx, cfg, log)
	defer func() { _ = sink.CloseAll(sinks) }()
	return errors.Join(openErr, sink.WriteAll(ctx, sinks, batch, log))
}

// openSinks connects every configured remote sink. A sink that cannot be
// reached is reported; the others are still returned.
func openSinks(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]sink.Sink, error) {
	var (
		out  []sink.Sink
		errs []error
	)
	if cfg.Postgres.DSN != "" {
		pg, err := sink.NewPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			errs = append(errs, &sink.PersistenceError{Sink: "postgres", Err: err})
		} else {
			out = append(out, pg)
		}
	}
	if cfg.Neo4j.URI != "" {
		nj, err := sink.NewNeo4j(ctx, sink.Neo4jConfig{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, log)
		if err != nil {
			errs = append(errs, &sink.PersistenceError{Sink: "neo4j", Err: err})
		} else {
			out = append(out, nj)
		}
	}
	if cfg.S3.Enabled() {
		s3, err := sink.NewS3(sink.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			errs = append(errs, &sink.PersistenceError{Sink: "s3", Err: err})
		} else {
			out = append(out, s3)
		}
	}
	return out, errors.Join(errs...)
}

func writeFile(path string, raw []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o644)
}
