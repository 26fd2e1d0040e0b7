package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/ui"
)

func newAskCmd() *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask the tutor; the exchange is added to the conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" && !retry {
				return fmt.Errorf("a question is required")
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			t, err := a.tutor()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.H2.Render(ui.IconChat+" TaxTutor"))
			streamed := false
			onToken := func(tok string) {
				streamed = true
				fmt.Fprint(out, tok)
			}

			var msg domain.ChatMessage
			if retry {
				msg, err = t.Retry(background(cmd), onToken)
			} else {
				msg, err = t.Send(background(cmd), question, onToken)
			}
			if streamed {
				fmt.Fprintln(out)
			}
			if err != nil && msg.Content != "" {
				fmt.Fprintln(out, ui.Panel.Render(msg.Content))
			}
			a.warnPersist(cmd)
			return err
		},
	}
	cmd.Flags().BoolVar(&retry, "retry", false, "Ask again for a reply to the last question")
	return cmd
}
