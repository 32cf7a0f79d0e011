package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/nulpointcorp/llm-gateway/internal/credential"
	"github.com/nulpointcorp/llm-gateway/internal/events"
	anthropicprov "github.com/nulpointcorp/llm-gateway/internal/providers/anthropic"
	geminiprov "github.com/nulpointcorp/llm-gateway/internal/providers/gemini"
	openaiprov "github.com/nulpointcorp/llm-gateway/internal/providers/openai"
	"github.com/nulpointcorp/llm-gateway/internal/proxy"
	"github.com/nulpointcorp/llm-gateway/internal/traffic"
	"github.com/nulpointcorp/llm-gateway/internal/upstream"
)

// initDispatch wires the three-dialect dispatch engine (credential pool,
// event hub, traffic recorder, provider registry) alongside the existing
// fixed-route Gateway, and mounts it on the catch-all /{provider}/{*path}
// route. Only the providers with a native-dialect adapter (anthropic,
// gemini, openai) participate — the rest keep serving the fixed OpenAI-
// compatible routes through the legacy Gateway path.
func (a *App) initDispatch(ctx context.Context) error {
	hub := events.NewHub()
	hub.AddSink(events.NewTerminalEventSink())

	var trafficRec *traffic.Recorder
	if a.cfg.Traffic.ClickHouseDSN != "" {
		chOpts, err := clickhouse.ParseDSN(a.cfg.Traffic.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse dsn: %w", err)
		}

		eventSink, err := events.NewClickHouseSink(ctx, chOpts, a.cfg.Traffic.EventsTable, a.log)
		if err != nil {
			return fmt.Errorf("clickhouse event sink: %w", err)
		}
		hub.AddSink(eventSink)

		trafficSink, err := traffic.NewClickHouseSink(ctx, chOpts, a.cfg.Traffic.DownstreamTable, a.cfg.Traffic.UpstreamTable)
		if err != nil {
			return fmt.Errorf("clickhouse traffic sink: %w", err)
		}
		trafficRec = traffic.New(a.baseCtx, trafficSink, a.log)
	}

	pool := credential.NewPool(hub)
	sched := credential.NewScheduler(pool)
	pool.AttachScheduler(sched)
	go sched.Run(a.baseCtx)

	registry := upstream.NewRegistry()

	var credID int64
	nextID := func() int64 { credID++; return credID }

	// registerCredential inserts the pool entry first so its id is known
	// before newAdapter builds the upstream.Provider that carries it.
	registerCredential := func(provider, secret string, newAdapter func(id int64) upstream.Provider) {
		id := nextID()
		pool.Insert(credential.Credential{ID: id, Provider: provider, Secret: secret, Enabled: true})
		registry.Register(newAdapter(id))
		if secret == "" {
			// InvalidConfig: no secret configured for a provider that was
			// still wired up, so every call through it would fail auth.
			pool.MarkDead(id, credential.ReasonAuthInvalid)
		}
	}

	if p, ok := a.provs["anthropic"].(*anthropicprov.Provider); ok {
		registerCredential("anthropic", a.cfg.Anthropic.APIKey, func(id int64) upstream.Provider { return anthropicprov.NewNativeAdapter(p, id) })
	}
	if p, ok := a.provs["gemini"].(*geminiprov.Provider); ok {
		registerCredential("gemini", a.cfg.Gemini.APIKey, func(id int64) upstream.Provider { return geminiprov.NewNativeAdapter(p, id) })
	}
	if p, ok := a.provs["openai"].(*openaiprov.Provider); ok {
		registerCredential("openai", a.cfg.OpenAI.APIKey, func(id int64) upstream.Provider { return openaiprov.NewNativeAdapter(p, id) })
	}

	dg := proxy.NewDispatchGateway(registry, pool, trafficRec, a.log)
	a.gw.SetDispatchGateway(dg)

	a.log.Info("dispatch engine wired", slog.Bool("clickhouse", a.cfg.Traffic.ClickHouseDSN != ""))

	a.dispatchPool = pool
	a.trafficRec = trafficRec

	return nil
}
