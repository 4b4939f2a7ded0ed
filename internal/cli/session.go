// session.go implements "docchat session" for inspecting and resetting the
// stored conversation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/chatapi"
	"github.com/berth-dev/docchat/internal/coordinator"
	"github.com/berth-dev/docchat/internal/selection"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the stored session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored session and its transcript",
	RunE:  runSessionShow,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored session",
	Long: `Delete the stored session on the backend and forget it locally.
The next start creates a fresh session.`,
	RunE: runSessionClear,
}

var jsonFlag bool

func init() {
	sessionShowCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the conversation as JSON")
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	rec := e.store.GetSession()
	if rec == nil {
		fmt.Fprintln(out, "No stored session.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	coord := coordinator.New(e.client, e.store, selection.NewTracker(nil, e.logger), coordinator.OptionsFromConfig(e.cfg, e.logger))
	if err := coord.Initialize(ctx); err != nil {
		return fmt.Errorf("loading session: %s", chatapi.UserMessage(err))
	}

	if jsonFlag {
		data, err := json.MarshalIndent(coord.Conversation(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling conversation: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	st := coord.State()
	if st.Session == nil || st.Session.ID != rec.SessionID {
		fmt.Fprintf(out, "Stored session %s no longer exists on the backend.\n", rec.SessionID)
	}
	if st.Session != nil {
		fmt.Fprintf(out, "Session: %s\n", st.Session.ID)
		fmt.Fprintf(out, "Title:   %s\n", st.Session.Title)
		fmt.Fprintf(out, "Status:  %s\n", st.Session.Status)
	}
	fmt.Fprintln(out)
	for _, m := range st.Transcript {
		who := color.GreenString("You")
		if m.Sender != chat.SenderUser {
			who = color.MagentaString("Assistant")
		}
		fmt.Fprintf(out, "%s [%s] %s\n", who, m.Status, m.Content)
	}
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	id := e.store.GetSessionID()
	if id == "" {
		fmt.Fprintln(out, "No stored session.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.client.DeleteSession(ctx, id); err != nil && !chatapi.IsNotFound(err) {
		fmt.Fprintf(out, "%s %s\n", color.YellowString("Warning:"), chatapi.UserMessage(err))
	}
	e.store.ClearAll()
	fmt.Fprintf(out, "Cleared session %s.\n", id)
	return nil
}
