// ask.go implements "docchat ask" for one-shot questions without the reader.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/chatapi"
	"github.com/berth-dev/docchat/internal/coordinator"
	"github.com/berth-dev/docchat/internal/docs"
	"github.com/berth-dev/docchat/internal/selection"
	"github.com/berth-dev/docchat/internal/tui"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Long: `Ask a question in the stored session and print the answer.
With --selection the question is scoped to that passage, as if it had
been selected in the reader.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var selectionFlag string

func init() {
	askCmd.Flags().StringVar(&selectionFlag, "selection", "", "Passage to scope the question to")
}

// passage is a Document whose live selection is a fixed string.
type passage struct {
	text string
}

func (p *passage) Selection() (selection.Range, bool) {
	if p.text == "" {
		return selection.Range{}, false
	}
	return selection.Range{Text: p.text, End: len(p.text)}, true
}

func (p *passage) ClearSelection() {
	p.text = ""
}

func runAsk(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	tracker := selection.NewTracker(&passage{text: selectionFlag}, e.logger)
	tracker.OnSelectionGesture()

	opts := coordinator.OptionsFromConfig(e.cfg, e.logger)
	opts.RecoverOnSend = true
	coord := coordinator.New(e.client, e.store, tracker, opts)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// Send recovers the session itself when Initialize could not create one.
	_ = coord.Initialize(ctx)

	out := cmd.OutOrStdout()
	if mode := tracker.Mode(); mode.IsSelectedText() {
		fmt.Fprintf(out, "%s %s\n", color.New(color.FgMagenta, color.Bold).Sprint(mode.Label()+":"), mode.Preview())
	}

	sendErr := coord.Send(ctx, strings.Join(args, " "))
	var verr *chat.ValidationError
	switch {
	case errors.As(sendErr, &verr):
		return errors.New(chatapi.UserMessage(sendErr))
	case errors.Is(sendErr, coordinator.ErrNoSession):
		return fmt.Errorf("could not start a session: %s", chatapi.UserMessage(sendErr))
	}

	st := coord.State()
	printReply(out, st.Transcript[len(st.Transcript)-1])
	if sendErr != nil {
		return fmt.Errorf("%s (%s)", chatapi.UserMessage(sendErr), chatapi.CodeOf(sendErr))
	}
	return nil
}

func printReply(out io.Writer, msg chat.Message) {
	style := "notty"
	if tui.IsTTY() {
		style = "dark"
	}
	body := msg.Content
	if r, err := docs.NewRenderer(style, 80); err == nil {
		if rendered, err := r.Render(msg.Content); err == nil {
			body = rendered
		}
	}
	fmt.Fprintln(out, body)

	if msg.Failed() {
		fmt.Fprintln(out, color.RedString("(Failed to deliver)"))
		return
	}
	if len(msg.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, color.New(color.Faint).Sprint("Sources:"))
		for _, s := range msg.Sources {
			line := "  - " + s.Title
			if s.URL != "" {
				line += " (" + s.URL + ")"
			}
			fmt.Fprintln(out, color.New(color.Faint).Sprint(line))
		}
	}
}
