package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/quantalpha/advisor-cli/internal/advisor"
	"github.com/quantalpha/advisor-cli/internal/analytics"
	"github.com/quantalpha/advisor-cli/internal/resilience"
	"github.com/quantalpha/advisor-cli/internal/scenario"
	"github.com/quantalpha/advisor-cli/internal/store"
	"github.com/quantalpha/advisor-cli/pkg/anthropic"
)

// advisorEnv holds the wired service and its closeable resources.
type advisorEnv struct {
	Service *advisor.Service
	store   store.Store
}

func (e *advisorEnv) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// initAdvisor builds the advisor service from config: session store,
// analytics client, Anthropic client, and the scenario dataset.
func initAdvisor(ctx context.Context) (*advisorEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	retry := resilience.FromRetryConfig(
		cfg.Resilience.MaxRetries,
		cfg.Resilience.InitialBackoffMs,
		cfg.Resilience.MaxBackoffMs,
	)
	circuit := resilience.FromCircuitConfig(
		cfg.Resilience.FailureThreshold,
		cfg.Resilience.ResetTimeoutSecs,
	)

	fetcher := analytics.New(analytics.Options{
		BaseURL:           cfg.Analytics.BaseURL,
		Timeout:           time.Duration(cfg.Analytics.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Analytics.RequestsPerSecond,
		Retry:             retry,
		Circuit:           circuit,
	})

	dataset := scenario.Default()
	if cfg.Scenario.DatasetPath != "" {
		dataset, err = scenario.LoadFile(cfg.Scenario.DatasetPath)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	svc, err := advisor.New(
		advisor.Options{
			Model:      cfg.Anthropic.Model,
			MaxTokens:  cfg.Advisor.MaxTokens,
			MaxHistory: cfg.Advisor.MaxHistory,
			Circuit:    circuit,
		},
		dataset,
		fetcher,
		anthropic.NewClient(cfg.Anthropic.Key),
		st,
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &advisorEnv{Service: svc, store: st}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
