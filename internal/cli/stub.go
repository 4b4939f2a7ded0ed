// stub.go implements "docchat stub-backend", a local stand-in for the chat
// backend used for demos and manual testing.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/docchat/internal/stubserver"
)

var stubCmd = &cobra.Command{
	Use:   "stub-backend",
	Short: "Serve a local stand-in for the chat backend",
	Long: `Serve the five chat endpoints from memory. Answers are canned but
follow the real wire format, including selected-text replies.`,
	RunE: runStub,
}

var (
	stubAddr  string
	stubDelay time.Duration
)

func init() {
	stubCmd.Flags().StringVar(&stubAddr, "addr", "127.0.0.1:8000", "Listen address")
	stubCmd.Flags().DurationVar(&stubDelay, "delay", 0, "Artificial latency per request")
}

func runStub(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := stubserver.New()
	srv.SetFaults(stubserver.Faults{Delay: stubDelay})

	fmt.Fprintf(cmd.OutOrStdout(), "Stub backend listening on http://%s/api\n", stubAddr)
	return srv.ListenAndServe(ctx, stubAddr)
}
