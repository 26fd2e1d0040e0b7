package root

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/storage"
	"github.com/conorfennell/taxtutor/internal/ui"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the saved study state",
	}
	cmd.AddCommand(newStateInfoCmd(), newStateResetCmd())
	return cmd
}

func newStateInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show where the state is kept and what it holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			snap := a.store.Snapshot()
			fmt.Fprintln(out, ui.Heading(ui.IconBox, "State"))
			fmt.Fprintln(out, ui.LabelValue("Driver", a.cfg.Storage.Driver))
			if a.cfg.Storage.Driver != "memory" {
				fmt.Fprintln(out, ui.LabelValue("Path", a.cfg.Storage.Path))
			}
			if db, ok := a.backend.(*storage.DB); ok {
				info, err := db.Info(background(cmd))
				if err != nil {
					return err
				}
				if info == nil {
					fmt.Fprintln(out, ui.LabelValue("Saved", ui.Muted.Render("nothing yet")))
				} else {
					fmt.Fprintln(out, ui.LabelValue("Revision", info.Revision))
					fmt.Fprintln(out, ui.LabelValue("Size", fmt.Sprintf("%d bytes", info.Size)))
					fmt.Fprintln(out, ui.LabelValue("Updated", info.UpdatedAt.Local().Format(time.DateTime)))
				}
			}
			fmt.Fprintln(out, ui.LabelValue("Schema version", snap.SchemaVersion))
			fmt.Fprintln(out, ui.LabelValue("Active view", a.store.CurrentView()))
			fmt.Fprintln(out, ui.LabelValue("Flashcards", len(snap.Flashcards)))
			fmt.Fprintln(out, ui.LabelValue("Best study streak", snap.BestStudyStreak))
			fmt.Fprintln(out, ui.LabelValue("Attempts", len(snap.AttemptLogs)))
			fmt.Fprintln(out, ui.LabelValue("Chat messages", len(snap.ChatMessages)))
			fmt.Fprintln(out, ui.LabelValue("Deck sources", len(snap.DeckSources)))
			return nil
		},
	}
}

func newStateResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved state; the next run starts from the built-in content",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all cards, attempts and chat history; pass --yes to confirm")
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.backend.Delete(background(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconWarn+" State reset"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
