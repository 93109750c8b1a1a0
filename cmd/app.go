package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"linkbrief/internal/augmenter"
	"linkbrief/internal/backend"
	"linkbrief/internal/config"
	"linkbrief/internal/extractor"
	"linkbrief/internal/logging"
	"linkbrief/internal/pipeline"
	"linkbrief/internal/summarizer"
)

const (
	maxIdleConnsPerHost = 16
	idleConnTimeout     = 90 * time.Second
)

type app struct {
	cfg          config.Config
	log          *slog.Logger
	orchestrator *pipeline.Orchestrator
}

// newApp loads configuration and builds the pipeline. Logs go to logOut.
func newApp(ctx context.Context, backendsFile string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return nil, err
	}

	log := logging.New(logOut, cfg.LogLevel)
	slog.SetDefault(log)

	if backendsFile == "" {
		backendsFile = cfg.BackendsFile
	}

	descriptors, err := config.LoadBackends(backendsFile)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load backends",
			"error", err,
			"backendsFile", backendsFile)

		return nil, err
	}

	client := newHTTPClient()

	chain, err := backend.BuildChain(ctx, descriptors, cfg.Credentials(), client, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to build backend chain",
			"error", err,
			"backendsFile", backendsFile,
			"declared", len(descriptors))

		return nil, fmt.Errorf("build backend chain: %w", err)
	}
	log.InfoContext(ctx, "Backend chain is initialized",
		"backends", chain.Names())

	registry := extractor.NewDefaultRegistry(cfg.ExtractorOptions(), client, cfg.ExtractTimeout, log)

	var searcher augmenter.Searcher
	if cfg.TavilyAPIKey != "" {
		searcher = augmenter.NewTavily(client, cfg.TavilyAPIKey, "", log)
	} else {
		log.WarnContext(ctx, "TAVILY_API_KEY is missing so context augmentation is disabled",
			"envVar", "TAVILY_API_KEY")
	}

	aug := augmenter.New(searcher, cfg.AugmentThreshold, cfg.AugmentAlways, cfg.AugmentTimeout, log)
	sum := summarizer.NewChainSummarizer(chain, cfg.MaxInputTokens, log)

	go func() {
		if err := sum.WarmTokenizer(ctx); err != nil {
			log.WarnContext(ctx, "Failed to load tokenizer so byte budget is used",
				"error", err)

			return
		}

		log.InfoContext(ctx, "Tokenizer is loaded")
	}()

	return &app{
		cfg:          cfg,
		log:          log,
		orchestrator: pipeline.New(registry, aug, sum, log),
	}, nil
}

// newHTTPClient returns the client shared by extractors, search and the
// HTTP-based backends. Deadlines come from request contexts.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost
	transport.IdleConnTimeout = idleConnTimeout

	return &http.Client{Transport: transport}
}
