package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/enrich"
	"github.com/contractlink/contract-hub/internal/gate"
	"github.com/contractlink/contract-hub/internal/notify"
	"github.com/contractlink/contract-hub/internal/registry"
	"github.com/contractlink/contract-hub/internal/search"
	"github.com/contractlink/contract-hub/internal/store"
	"github.com/contractlink/contract-hub/pkg/anthropic"
	"github.com/contractlink/contract-hub/pkg/jina"
	"github.com/contractlink/contract-hub/pkg/notion"
)

// appEnv bundles the wired subsystems a command needs.
type appEnv struct {
	Store     store.Store
	Gate      *gate.Gate
	Chain     *search.Chain
	Scheduler *enrich.Scheduler
	Registry  *registry.Registry
}

func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "contracthub.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initApp wires storage, the gate, and the enrichment scheduler.
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Load()
	if err != nil {
		st.Close()
		return nil, err
	}

	env := &appEnv{
		Store:    st,
		Gate:     gate.New(st, cfg.Quota.FreeViewLimit),
		Registry: reg,
	}

	chain, err := initSearchChain(st, reg)
	if err != nil {
		st.Close()
		return nil, err
	}
	env.Chain = chain

	var sink notify.Sink = notify.NewStoreSink(st)
	if cfg.Notion.Key != "" && cfg.Notion.DatabaseID != "" {
		nc := notion.NewClient(cfg.Notion.Key)
		sink = notify.NewMultiSink(sink, notify.NewNotionSink(nc, cfg.Notion.DatabaseID))
	}

	client := enrich.NewClient(chain, cfg.Enrich.Timeout())
	env.Scheduler = enrich.NewScheduler(st, client, sink, enrich.SchedulerConfig{
		DailyBatchSize:  cfg.Enrich.DailyBatchSize,
		ImportBatchSize: cfg.Enrich.ImportBatchSize,
		Pause:           cfg.Enrich.Pause(),
		RunBudget:       cfg.Enrich.RunBudget(),
	})

	return env, nil
}

// initSearchChain assembles the tiered lookup chain. The chain honors
// search.order; strategies missing their API key are left out so a
// partially configured deployment degrades instead of failing.
func initSearchChain(st store.Store, reg *registry.Registry) (*search.Chain, error) {
	available := map[string]search.Strategy{
		search.StrategyCache: search.NewCacheStrategy(st, reg),
	}

	if cfg.Jina.Key != "" {
		var jinaOpts []jina.Option
		if cfg.Jina.BaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithReaderURL(cfg.Jina.BaseURL))
		}
		if cfg.Jina.SearchBaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithSearchURL(cfg.Jina.SearchBaseURL))
		}
		jc := jina.NewClient(cfg.Jina.Key, jinaOpts...)
		available[search.StrategyReader] = search.NewReaderStrategy(jc, reg)
		available[search.StrategySearchAPI] = search.NewSearchAPIStrategy(jc, reg)
	}

	if cfg.Anthropic.Key != "" {
		ac := anthropic.NewClient(cfg.Anthropic.Key)
		available[search.StrategyLLM] = search.NewLLMStrategy(ac, reg, cfg.Anthropic.Model)
	}

	strategies := search.Build(cfg.Search.Order, available)
	if len(strategies) == 0 {
		return nil, eris.New("no search strategies configured: set CONTRACTHUB_JINA_KEY or CONTRACTHUB_ANTHROPIC_KEY")
	}

	return search.NewChain(strategies, st, reg, cfg.Search.CacheTTL()), nil
}
