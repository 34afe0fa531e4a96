package cli

import (
	"time"

	"github.com/spf13/cobra"

	"deeptrust/internal/platform/config"
)

// agentFlagSet tracks shared agent flags before they are converted into config overrides.
type agentFlagSet struct {
	backendURL      string
	analysisTimeout time.Duration
	debounce        time.Duration
	badgePolicy     string
	errorCooldown   time.Duration
	chromeURL       string
}

func bindAgentFlags(cmd *cobra.Command, flags *agentFlagSet) {
	cmd.Flags().StringVar(&flags.backendURL, "backend-url", "", "Analysis Service base URL (overrides config)")
	cmd.Flags().DurationVar(&flags.analysisTimeout, "timeout", 0, "Analysis request timeout, e.g. 30s (0 = no client timeout)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 0, "Collapse DOM mutation bursts within this window, e.g. 200ms")
	cmd.Flags().StringVar(&flags.badgePolicy, "badge-policy", "", "Repeated results on one element: replace or stack")
	cmd.Flags().DurationVar(&flags.errorCooldown, "error-cooldown", 0, "How long the popup shows Error before re-enabling Analyze")
	cmd.Flags().StringVar(&flags.chromeURL, "chrome-url", "", "DevTools WebSocket URL of a running Chrome (default: launch one)")
}

// toOverrides only carries flags the user actually set, so file and env values survive.
func (f *agentFlagSet) toOverrides(cmd *cobra.Command) config.AgentOverrides {
	ov := config.AgentOverrides{}

	if cmd.Flags().Changed("backend-url") {
		ov.BackendURL = f.backendURL
	}
	if cmd.Flags().Changed("timeout") {
		ov.AnalysisTimeout = &f.analysisTimeout
	}
	if cmd.Flags().Changed("debounce") {
		ov.DetectionDebounce = &f.debounce
	}
	if cmd.Flags().Changed("badge-policy") {
		ov.BadgePolicy = f.badgePolicy
	}
	if cmd.Flags().Changed("error-cooldown") {
		ov.ErrorCooldown = &f.errorCooldown
	}
	if cmd.Flags().Changed("chrome-url") {
		ov.ChromeRemoteURL = f.chromeURL
	}

	return ov
}
