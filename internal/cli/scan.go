package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"deeptrust/internal/app/di"
	"deeptrust/internal/feature/detection/adapters/htmldoc"
	"deeptrust/internal/feature/extension/message"
	"deeptrust/internal/feature/extension/popup"
	"deeptrust/internal/feature/indicator/adapters/memoryoverlay"
	"deeptrust/internal/platform/config"
	infrahttp "deeptrust/internal/platform/http"
	"deeptrust/internal/shared/ratelimiter"
)

const scanTab = "scan"

func newScanCmd(loader *config.Loader) *cobra.Command {
	var (
		flags   agentFlagSet
		analyze bool
		rate    int
	)

	cmd := &cobra.Command{
		Use:   "scan <file|url>",
		Short: "Detect media in a static HTML document and optionally analyze every item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadDotEnv()
			cfg, err := loader.LoadAgent(flags.toOverrides(cmd))
			if err != nil {
				return err
			}
			var limiter ratelimiter.Limiter
			if analyze {
				limiter = ratelimiter.NewRateLimiter(rate, time.Minute)
			}
			return runScan(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], limiter)
		},
	}

	bindAgentFlags(cmd, &flags)
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Analyze every detected item and print the badges that would be drawn")
	cmd.Flags().IntVar(&rate, "rate", 0, "With --analyze, at most this many analyses per minute (0 = unlimited)")
	return cmd
}

// runScan は一覧を表示します。limiterがnilでなければ全件を分析します。
func runScan(ctx context.Context, out io.Writer, cfg config.AgentConfig, target string, limiter ratelimiter.Limiter) error {
	logger := slog.Default()

	doc, err := htmldoc.Load(ctx, infrahttp.NewHTTPClient(cfg.AnalysisTimeout), target)
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

	overlay := memoryoverlay.New()
	tab, err := ext.OpenTab(scanTab, doc, overlay, di.NewListStore(rdb, scanTab, cfg.DetectionTTL))
	if err != nil {
		return err
	}
	defer tab.Close()

	p := ext.NewPopup(tab.ID, popup.NewTerminal(out))
	defer p.Close()

	items, err := p.Load(ctx)
	if err != nil {
		return fmt.Errorf("load media list: %w", err)
	}
	if limiter == nil || len(items) == 0 {
		return nil
	}

	failed := 0
	for i := range items {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := p.TriggerAnalyze(ctx, i); err != nil {
			failed++
		}
	}

	// ページは受信順に1件ずつ処理するため、この返答が届いた時点で先行するshowResultは描画済み
	if _, err := ext.Bus.Request(ctx, message.PopupEndpoint(tab.ID), message.PageEndpoint(tab.ID), message.NewGetMedia()); err != nil {
		return fmt.Errorf("wait for badges: %w", err)
	}

	for _, b := range overlay.Badges() {
		_, _ = fmt.Fprintf(out, "badge %s %q %s at %.0fx%.0f+%.0f+%.0f\n",
			b.Color(), b.Text, b.SourceURL, b.Rect.Width, b.Rect.Height, b.Rect.X, b.Rect.Y)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(items))
	}
	return nil
}
