package root

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/decksync"
	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/ui"
)

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage markdown deck sources",
	}
	cmd.AddCommand(newSourcesAddCmd(), newSourcesListCmd(), newSourcesRemoveCmd())
	return cmd
}

func newSourcesAddCmd() *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "add <path/or/url.git>",
		Short: "Register a local directory or git repository of decks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := decksync.NewSource(args[0], typ)
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, existing := range a.store.DeckSources() {
				if existing.Path == src.Path {
					return fmt.Errorf("source %s is already registered as %s", src.Path, existing.ID)
				}
			}
			src, _ = a.store.AddDeckSource(background(cmd), src)
			a.warnPersist(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconPlus+" Added "+src.Type+" source")+" "+ui.Muted.Render(src.ID))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Run `taxtutor sync` to import its cards."))
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Source type (local|git); guessed from the path when empty")
	return cmd
}

func newSourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deck sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			imported := map[string]int{}
			for _, c := range a.store.Flashcards() {
				if c.SourceID != "" {
					imported[c.SourceID]++
				}
			}

			out := cmd.OutOrStdout()
			sources := a.store.DeckSources()
			fmt.Fprintln(out, ui.Heading(ui.IconBox, fmt.Sprintf("Deck sources (%d)", len(sources))))
			for _, s := range sources {
				fmt.Fprintf(out, "- %s %s %s %s %s\n",
					ui.Muted.Render(s.ID),
					ui.Key.Render(s.Type),
					s.Path,
					ui.Muted.Render(fmt.Sprintf("%d cards", imported[s.ID])),
					ui.Muted.Render(scanned(s)),
				)
			}
			return nil
		},
	}
}

func scanned(s domain.DeckSource) string {
	if s.LastScanned == nil {
		return "never synced"
	}
	return "synced " + s.LastScanned.Local().Format(time.DateTime)
}

func newSourcesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Unregister a source; its cards are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.store.RemoveDeckSource(background(cmd), args[0]) == domain.NotFound {
				return fmt.Errorf("no source with id %s", args[0])
			}
			a.warnPersist(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render("Removed")+" "+args[0])
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [source-id]",
		Short: "Import new deck entries and drop removed ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := background(cmd)
			var reports []decksync.Report
			if len(args) == 1 {
				r, err := a.syncer().SyncSource(ctx, args[0])
				if err != nil {
					return err
				}
				reports = append(reports, r)
			} else {
				if reports, err = a.syncer().SyncAll(ctx); err != nil {
					return err
				}
			}
			a.warnPersist(cmd)

			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("No sources configured. Add one with `taxtutor sources add <path/or/url.git>`."))
				return nil
			}
			fmt.Fprintln(out, ui.Heading(ui.IconSync, "Sync"))
			failed := 0
			for _, r := range reports {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "- %s %s\n", ui.Bad.Render(r.Path), ui.Muted.Render(r.Failure()))
					continue
				}
				fmt.Fprintf(out, "- %s %s\n", r.Path, ui.Muted.Render(fmt.Sprintf(
					"%d parsed, %d added, %d removed, %d skipped", r.Parsed, r.Added, r.Orphaned, r.Skipped)))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d sources failed to sync", failed, len(reports))
			}
			return nil
		},
	}
}
