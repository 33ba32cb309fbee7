package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quantumbreach/cmd/breach/console"
	"quantumbreach/cmd/breach/ui"
	"quantumbreach/internal/config"
	"quantumbreach/internal/logging"
	"quantumbreach/internal/payload"
	"quantumbreach/internal/session"
	"quantumbreach/internal/telemetry"
)

// runConsole starts the interactive console and, when enabled, the metrics listener.
// Either one stopping stops the other.
func runConsole(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := logging.Get(logging.CategoryBoot)

	src, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := telemetry.New()
	if cfg.Metrics.Enabled {
		metrics.Registry().MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	ctrl := session.New(session.Options{
		Source:        src,
		Tick:          cfg.GetTick(),
		SourceTimeout: cfg.GetPayloadTimeout(),
		Observer:      metrics,
	})
	defer ctrl.Close()

	styles := ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))
	tutorialStyle := "light"
	if styles.Theme.IsDark {
		tutorialStyle = "dark"
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return console.Run(runCtx, ctrl, console.Options{Styles: styles, TutorialStyle: tutorialStyle})
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(runCtx, cfg.Metrics.Listen)
		})
	}

	boot.Info("console started (tick %s, gemini %v, metrics %v)", cfg.GetTick(), src != nil, cfg.Metrics.Enabled)
	return g.Wait()
}

// buildSource returns the configured text source, or nil for the fallback table.
func buildSource(ctx context.Context, c *config.Config) (payload.Source, error) {
	if !c.UsesGemini() {
		logger.Debug("using fallback stages", zap.String("provider", c.Payload.Provider))
		return nil, nil
	}
	src, err := payload.NewGeminiSource(ctx, payload.GeminiConfig{
		APIKey:         c.Payload.APIKey,
		Model:          c.Payload.Model,
		Temperature:    c.Payload.Temperature,
		ThinkingBudget: c.Payload.ThinkingBudget,
		Timeout:        c.GetPayloadTimeout(),
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("text source ready", zap.String("source", src.Name()))
	return src, nil
}
