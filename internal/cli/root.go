// Package cli defines Cobra command definitions for the docchat CLI.
// This file contains the root command, version flag, and help output.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/berth-dev/docchat/internal/coordinator"
	"github.com/berth-dev/docchat/internal/docs"
	"github.com/berth-dev/docchat/internal/retry"
	"github.com/berth-dev/docchat/internal/selection"
	"github.com/berth-dev/docchat/internal/tui"
	"github.com/berth-dev/docchat/internal/tui/app"
	"github.com/berth-dev/docchat/internal/tui/commands"
	"github.com/berth-dev/docchat/internal/tui/views"
)

var (
	projectDir string
	apiURL     string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with the documentation you are reading",
	Long: `docchat opens a documentation reader with a chat pane beside it.
Select a passage to ask questions scoped to it, or ask about the
documentation as a whole.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runReader,
}

func runReader(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if !tui.IsTTY() {
		err := tui.NewFallbackRunner(e.cfg).Run()
		if errors.Is(err, tui.ErrNotInteractive) {
			return nil
		}
		return err
	}

	pages, err := docs.Load(docs.ResolveDir(e.root, e.cfg.Docs.Dir))
	if err != nil {
		return fmt.Errorf("loading documentation: %w", err)
	}

	hl := views.NewHighlight()
	tracker := selection.NewTracker(hl, e.logger)
	notify, states := commands.StateChannel(64)
	opts := coordinator.OptionsFromConfig(e.cfg, e.logger)
	opts.Notify = notify
	coord := coordinator.New(e.client, e.store, tracker, opts)

	tuiApp := app.New(app.Deps{
		Coordinator: coord,
		Tracker:     tracker,
		Highlight:   hl,
		States:      states,
		Store:       e.store,
		Client:      e.client,
		Health:      healthPolicy(e.cfg.Retry.MaxAttempts),
		Pages:       pages,
		Logger:      e.logger,
	})
	return tui.Run(tuiApp, tui.NewFallbackRunner(e.cfg))
}

// healthPolicy retries health probes on any failure.
func healthPolicy(attempts int) retry.Policy {
	p := retry.Policy{MaxAttempts: attempts}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Project directory holding .docchat/")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Override the chat backend base URL")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(stubCmd)
}
