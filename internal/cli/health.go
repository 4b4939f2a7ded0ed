// health.go implements "docchat health", a backend reachability probe.
package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/berth-dev/docchat/internal/chatapi"
	"github.com/berth-dev/docchat/internal/log"
	"github.com/berth-dev/docchat/internal/retry"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the chat backend is reachable",
	RunE:  runHealth,
}

var retriesFlag int

func init() {
	healthCmd.Flags().IntVar(&retriesFlag, "retries", 1, "Attempts before giving up")
}

func runHealth(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	start := time.Now()
	policy := healthPolicy(retriesFlag)
	policy.InitialInterval = e.cfg.Retry.InitialInterval()
	body, err := retry.Do(ctx, policy, e.logger, "health", e.client.HealthCheck)
	if err != nil {
		fmt.Fprintf(out, "%s %s: %s\n", color.RedString("✗"), e.client.BaseURL(), chatapi.UserMessage(err))
		return fmt.Errorf("backend unreachable (%s)", chatapi.CodeOf(err))
	}

	e.logger.Info(log.LogEvent{
		Event:      log.EventHealthChecked,
		URL:        e.client.BaseURL(),
		DurationMs: time.Since(start).Milliseconds(),
		Data:       body,
	})

	fmt.Fprintf(out, "%s %s (%s)\n", color.GreenString("✓"), e.client.BaseURL(), time.Since(start).Round(time.Millisecond))
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %v\n", k, body[k])
	}
	return nil
}
