package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"deeptrust/internal/app/di"
	"deeptrust/internal/feature/detection/adapters/rodpage"
	"deeptrust/internal/feature/extension/popup"
	"deeptrust/internal/feature/indicator/adapters/rodoverlay"
	"deeptrust/internal/platform/browser"
	"deeptrust/internal/platform/config"
)

const watchTab = "1"

func newWatchCmd(loader *config.Loader) *cobra.Command {
	var (
		flags    agentFlagSet
		headless bool
	)

	cmd := &cobra.Command{
		Use:   "watch <page-url>",
		Short: "Open a page in Chrome, keep its media list current and analyze items interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadDotEnv()
			cfg, err := loader.LoadAgent(flags.toOverrides(cmd))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, cfg, args[0], headless)
		},
	}

	bindAgentFlags(cmd, &flags)
	cmd.Flags().BoolVar(&headless, "headless", false, "Launch Chrome without a window (ignored with --chrome-url)")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, cfg config.AgentConfig, pageURL string, headless bool) error {
	logger := slog.Default()

	sess, err := browser.Start(ctx, browser.Config{
		RemoteURL: cfg.ChromeRemoteURL,
		Headless:  headless,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	page, err := sess.OpenPage(ctx, pageURL)
	if err != nil {
		return err
	}

	rdb := connectRedis(ctx)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	ext, err := di.NewExtension(cfg, di.NewAnalysisClient(cfg), logger)
	if err != nil {
		return err
	}
	defer ext.Close()

	doc := rodpage.New(page, logger)
	tab, err := ext.OpenTab(watchTab, doc, rodoverlay.New(page), di.NewListStore(rdb, watchTab, cfg.DetectionTTL))
	if err != nil {
		return err
	}
	defer tab.Close()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		if err := tab.Detector.Watch(watchCtx, doc); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("media watch stopped", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	p := ext.NewPopup(tab.ID, popup.NewTerminal(out))
	defer p.Close()

	if _, err := p.Load(ctx); err != nil {
		return fmt.Errorf("load media list: %w", err)
	}
	_, _ = fmt.Fprintln(out, `type "help" for commands`)

	c := &console{tab: tab.ID, popup: p, worker: ext.Worker, out: out}
	if err := c.run(ctx, cmd.InOrStdin()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
