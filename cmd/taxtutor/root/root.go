package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/config"
	"github.com/conorfennell/taxtutor/internal/ui"
)

const Version = "0.1.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taxtutor",
		Short:         "TaxTutor: study Income Tax with lessons, practice, flashcards and a chat tutor",
		Long:          "TaxTutor keeps your study state locally and serves it over a JSON API, relaying tutor chats to an OpenAI-compatible model.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newServeCmd(),
		newCardsCmd(),
		newSourcesCmd(),
		newSyncCmd(),
		newProgressCmd(),
		newExportCmd(),
		newImportCmd(),
		newAskCmd(),
		newStateCmd(),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
