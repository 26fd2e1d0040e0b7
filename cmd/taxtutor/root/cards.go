package root

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/sm2"
	"github.com/conorfennell/taxtutor/internal/ui"
)

func newCardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Manage and review flashcards",
	}
	cmd.AddCommand(newCardsListCmd(), newCardsAddCmd(), newCardsReviewCmd(), newCardsStudyCmd(), newCardsDeleteCmd(), newCardsStatsCmd())
	return cmd
}

func daysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

func newCardsListCmd() *cobra.Command {
	var set, query, tag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flashcards in a study set",
		RunE: func(cmd *cobra.Command, args []string) error {
			studySet, err := sm2.ParseStudySet(set)
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			now := time.Now()
			cards := a.store.StudyCards(studySet, sm2.Filter{Query: query, Tag: tag}, now)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconCard, fmt.Sprintf("Flashcards (%s, %d)", studySet, len(cards))))
			for _, c := range cards {
				fmt.Fprintf(out, "- %s %s %s %s\n",
					ui.Muted.Render(c.ID[:min(8, len(c.ID))]),
					ui.Truncate(c.Front, 60),
					ui.Muted.Render("["+c.Tag+"]"),
					ui.Due(daysUntil(c.Due, now)),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&set, "set", "s", "cram", "Study set (due|new|review|cram)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search front, back and tag")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only cards with this tag")
	return cmd
}

func newCardsAddCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "add <front> <back>",
		Short: "Add a flashcard",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("front and back are required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := domain.NewFlashcard(args[0], args[1], tag, time.Now())
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			card, _ = a.store.AddFlashcard(background(cmd), card)
			a.warnPersist(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconPlus+" Added")+" "+ui.Muted.Render(card.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Tag (default General)")
	return cmd
}

// resolveCard finds a card by full id, unique id prefix, or exact front text.
func resolveCard(cards []domain.Flashcard, ref string) (domain.Flashcard, error) {
	var matches []domain.Flashcard
	for _, c := range cards {
		if c.ID == ref {
			return c, nil
		}
		if len(ref) >= 4 && len(c.ID) >= len(ref) && c.ID[:len(ref)] == ref {
			matches = append(matches, c)
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return domain.Flashcard{}, fmt.Errorf("card reference %q is ambiguous", ref)
	}
	for _, c := range cards {
		if c.Front == ref {
			return c, nil
		}
	}
	return domain.Flashcard{}, fmt.Errorf("no card matches %q", ref)
}

func newCardsReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <card> <quality>",
		Short: "Record a review (quality 1-5 or again|hard|good|easy|perfect)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := sm2.ParseQuality(args[1])
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			card, err := resolveCard(a.store.Flashcards(), args[0])
			if err != nil {
				return err
			}
			next, res := sm2.NewEngine(nil).Review(background(cmd), a.store, domain.ByID(card.ID), q)
			if res == domain.NotFound {
				return fmt.Errorf("card %s disappeared", card.ID)
			}
			a.warnPersist(cmd)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Good.Render(ui.IconDone+" "+q.String())+" "+ui.Truncate(card.Front, 60))
			fmt.Fprintln(out, ui.LabelValue("Next review", next.Due.Local().Format(time.DateOnly)))
			fmt.Fprintln(out, ui.LabelValue("Interval", fmt.Sprintf("%d days", next.Interval)))
			fmt.Fprintln(out, ui.LabelValue("Easiness", fmt.Sprintf("%.2f", next.Easiness)))
			return nil
		},
	}
}

func newCardsStudyCmd() *cobra.Command {
	var set, query, tag string

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Study a set of flashcards interactively",
		Long: `Study shows each card's front and reads one line per step from stdin:
an empty line reveals the back, 1-5 or a quality name rates the card,
"s" skips it and "q" ends the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			studySet, err := sm2.ParseStudySet(set)
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			cards := a.store.StudyCards(studySet, sm2.Filter{Query: query, Tag: tag}, time.Now())
			if len(cards) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("No cards to study."))
				return nil
			}

			ctx := background(cmd)
			engine := sm2.NewEngine(nil)
			sess := sm2.NewSession(cards, a.store.BestStudyStreak())
			in := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprintln(out, ui.Heading(ui.IconCard, fmt.Sprintf("Study (%s, %d)", studySet, len(cards))))

		study:
			for {
				card, ok := sess.Current()
				if !ok {
					break
				}
				fmt.Fprintf(out, "\n%s %s\n", ui.Muted.Render(fmt.Sprintf("[%d/%d]", len(cards)-sess.Stats().Remaining+1, len(cards))), card.Front)
				for {
					fmt.Fprint(out, ui.Muted.Render("rate 1-5, enter to flip, s to skip, q to quit: "))
					if !in.Scan() {
						fmt.Fprintln(out)
						break study
					}
					line := strings.TrimSpace(in.Text())
					switch strings.ToLower(line) {
					case "":
						fmt.Fprintln(out, ui.Panel.Render(card.Back))
						continue
					case "s":
						sess.Skip()
					case "q":
						break study
					default:
						q, err := sm2.ParseQuality(line)
						if err != nil {
							fmt.Fprintln(out, ui.Warn.Render(err.Error()))
							continue
						}
						_, res := sess.Rate(ctx, engine, a.store, q)
						switch {
						case res == domain.NotFound:
							fmt.Fprintln(out, ui.Warn.Render("card no longer exists, skipped"))
						case q.Passed():
							streak := fmt.Sprintf("streak %d", sess.Stats().Streak)
							fmt.Fprintln(out, ui.Good.Render(ui.IconDone+" "+q.String())+" "+ui.Muted.Render(streak))
						default:
							fmt.Fprintln(out, ui.Bad.Render(q.String())+" "+ui.Muted.Render("streak reset"))
						}
					}
					break
				}
			}
			if err := in.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			a.warnPersist(cmd)

			st := sess.Stats()
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.Heading(ui.IconFlame, "Session"))
			fmt.Fprintln(out, ui.LabelValue("Reviewed", st.Total))
			fmt.Fprintln(out, ui.LabelValue("Correct", st.Correct))
			fmt.Fprintln(out, ui.LabelValue("Incorrect", st.Incorrect))
			fmt.Fprintln(out, ui.LabelValue("Accuracy", ui.Accuracy(domain.Percent(st.Correct, st.Total))))
			fmt.Fprintln(out, ui.LabelValue("Best streak", st.BestStreak))
			return nil
		},
	}
	cmd.Flags().StringVarP(&set, "set", "s", "due", "Study set (due|new|review|cram)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search front, back and tag")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only cards with this tag")
	return cmd
}

func newCardsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <card>",
		Short: "Delete a flashcard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			card, err := resolveCard(a.store.Flashcards(), args[0])
			if err != nil {
				return err
			}
			a.store.DeleteFlashcard(background(cmd), domain.ByID(card.ID))
			a.warnPersist(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render("Deleted")+" "+ui.Truncate(card.Front, 60))
			return nil
		},
	}
}

func newCardsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show deck statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			cards := a.store.Flashcards()
			st := sm2.ComputeStats(cards, time.Now())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconChart, "Deck"))
			fmt.Fprintln(out, ui.LabelValue("Total", st.Total))
			fmt.Fprintln(out, ui.LabelValue("Due", st.Due))
			fmt.Fprintln(out, ui.LabelValue("New", st.New))
			fmt.Fprintln(out, ui.LabelValue("Mastered", st.Mastered))
			fmt.Fprintln(out, ui.LabelValue("Average easiness", fmt.Sprintf("%.2f", st.AvgEasiness)))
			if tags := sm2.Tags(cards); len(tags) > 0 {
				fmt.Fprintln(out, ui.LabelValue("Tags", ui.Muted.Render(fmt.Sprint(tags))))
			}
			return nil
		},
	}
}
