package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/config"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/correct"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/imaging"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr/tesseract"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/pipeline"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/server"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion HTTP daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log := observability.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)

	registry := pipeline.NewRegistry()

	var summarizer pipeline.Summarizer
	var corrector correct.Corrector
	if cfg.Correction.Disabled {
		corrector = disabledCorrector{}
	} else {
		groq := correct.NewGroqCorrector(correct.GroqConfig{
			BaseURL:     cfg.Correction.BaseURL,
			APIKey:      cfg.Correction.APIKey(),
			Model:       cfg.Correction.Model,
			Temperature: cfg.Correction.Temperature,
			Timeout:     cfg.Correction.Timeout.Std(),
		}, log)
		corrector = groq
		summarizer = groq
	}

	orch := pipeline.NewOrchestrator(registry,
		ocr.NewAdapter(tesseract.NewEngine(), log),
		correct.NewAdapter(corrector, log),
		summarizer,
		metrics,
		log,
		pipeline.Options{
			Workers: cfg.Workers,
			WorkDir: cfg.WorkDir,
			Imaging: imaging.Options{
				MaxDimension: cfg.MaxImageDimension,
				Binarize:     cfg.Binarize,
			},
		})

	srv := server.New(orch, registry, log, server.Options{
		Gatherer:  promReg,
		Retention: cfg.Retention.Std(),
	})
	return srv.Run(ctx, cfg.ListenAddr)
}

// disabledCorrector keeps jobs flowing when no correction service is
// configured; every page deliberately takes the raw-text fallback path.
type disabledCorrector struct{}

func (disabledCorrector) Name() string { return "disabled" }

func (disabledCorrector) Correct(_ context.Context, text string, _ correct.Style) (string, error) {
	return correct.Fallback(text), nil
}
