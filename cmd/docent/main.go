// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/ai/openai"
	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/metrics"
	"github.com/poiesic/docent/reembed"
	"github.com/poiesic/docent/server"
	"github.com/poiesic/docent/storage/badger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docent",
		Usage: "Document-grounded question answering for a college",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML or YAML configuration file",
				EnvVars: []string{"DOCENT_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides the configuration)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Index one or more documents",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "department",
						Usage: "Department framing the answer",
						Value: answer.DefaultDepartment,
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of fragments to retrieve (0 uses the configured default)",
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Generation strategy (stuff, refine)",
						Value: string(answer.StrategyStuff),
					},
				},
			},
			{
				Name:   "documents",
				Usage:  "List indexed documents",
				Action: documentsCommand,
			},
			{
				Name:      "delete",
				Usage:     "Remove a document from the index",
				ArgsUsage: "NAME",
				Action:    deleteCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every fragment with a new embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (overrides the configuration)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of fragments to embed per request",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N fragments",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func openDocent(ctx context.Context, cfg *config.Config, opts ...docent.Option) (*docent.Docent, error) {
	opts = append(docent.FromConfig(cfg), opts...)
	d, err := docent.Open(ctx, cfg.Storage.PersistDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return d, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	activity := server.NewActivityLog(server.DefaultActivitySize)

	d, err := openDocent(ctx, cfg, docent.WithMetrics(m), docent.WithIngestionMonitor(activity))
	if err != nil {
		return err
	}
	defer d.Close()

	srv, err := server.New(d,
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		server.WithMaxUpload(cfg.Server.MaxUpload),
		server.WithActivity(activity),
		server.WithMetrics(m, reg),
	)
	if err != nil {
		return err
	}
	return srv.Run(ctx, cfg.Server.Addr)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	d, err := openDocent(c.Context, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	failed := 0
	for _, path := range c.Args().Slice() {
		if err := ingestFile(c.Context, d, path, c.App.Writer); err != nil {
			slog.Error("ingestion failed", "file", path, "err", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, c.NArg())
	}
	return nil
}

func ingestFile(ctx context.Context, d *docent.Docent, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := d.Ingest(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d fragments stored", result.Document, result.Stored)
	switch {
	case result.Unchanged:
		fmt.Fprint(out, " (content unchanged)")
	case result.Failed > 0:
		fmt.Fprintf(out, " (%d failed batches)", result.Failed)
	}
	fmt.Fprintln(out)
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	d, err := openDocent(c.Context, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	resp, err := d.Answer(c.Context, answer.Request{
		Question:   question,
		Department: c.String("department"),
		K:          c.Int("k"),
		Strategy:   c.String("strategy"),
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintln(out, resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintln(out)
		for _, source := range resp.Sources {
			fmt.Fprintf(out, "  [%.3f] %s #%d\n", source.Score, source.Fragment.Source, source.Fragment.ChunkID)
		}
	}
	return nil
}

func documentsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	d, err := openDocent(c.Context, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	docs, err := d.Documents(c.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tFRAGMENTS")
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\n", doc.Key, doc.State, doc.Fragments)
	}
	return w.Flush()
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document name is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	d, err := openDocent(c.Context, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	removed, err := d.Delete(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: %d fragments removed\n", c.Args().First(), removed)
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	aiConfig := cfg.AIConfig()
	aiConfig.EmbeddingModel = c.String("embedding-model")
	if host := c.String("embedding-host"); host != "" {
		aiConfig.EmbeddingHost = host
	}
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	reembedConfig := &reembed.Config{
		Model:          aiConfig.EmbeddingModel,
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := reembedConfig.Validate(); err != nil {
		return err
	}

	backend, err := badger.OpenBackend(cfg.Storage.PersistDir, false)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer backend.Close()

	fragments, err := badger.NewFragmentRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer fragments.Close()

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Index: %s\n", cfg.Storage.PersistDir)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n\n", aiConfig.EmbeddingModel)

	reembedder := reembed.NewReembedder(fragments, badger.NewManifestRepository(backend), embedder, reembedConfig, c.App.ErrWriter)
	if err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
