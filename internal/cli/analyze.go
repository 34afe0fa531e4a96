package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"deeptrust/internal/app/di"
	orchestrator "deeptrust/internal/feature/orchestrator/usecase"
	"deeptrust/internal/platform/config"
	"deeptrust/internal/shared/media"
)

func newAnalyzeCmd(loader *config.Loader) *cobra.Command {
	var (
		flags     agentFlagSet
		mediaType string
	)

	cmd := &cobra.Command{
		Use:   "analyze <media-url>",
		Short: "Send one media URL to the Analysis Service and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := media.ParseMediaType(mediaType)
			if err != nil {
				return err
			}

			loadDotEnv()
			cfg, err := loader.LoadAgent(flags.toOverrides(cmd))
			if err != nil {
				return err
			}

			orch := orchestrator.NewOrchestrator(di.NewAnalysisClient(cfg), nil, slog.Default())
			res, err := orch.Analyze(cmd.Context(), media.AnalysisRequest{URL: args[0], Type: t}, "")
			if err != nil {
				return errors.New(orchestrator.UserMessage(err))
			}

			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	bindAgentFlags(cmd, &flags)
	cmd.Flags().StringVar(&mediaType, "type", string(media.Image), "Media type: image or video")
	return cmd
}
