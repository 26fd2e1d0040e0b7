package root

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/report"
	"github.com/conorfennell/taxtutor/internal/ui"
)

func newProgressCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show study progress, streak and weak areas",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := report.ParsePeriod(period)
			if err != nil {
				return err
			}
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			now := time.Now()
			snap := a.store.Snapshot()
			sum := report.Summarize(report.FilterLogs(snap.AttemptLogs, p, now))
			ov := report.BuildOverview(snap, now)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconChart, "Progress ("+string(p)+")"))
			fmt.Fprintln(out, ui.LabelValue("Questions", sum.TotalQuestions))
			fmt.Fprintln(out, ui.LabelValue("Correct", sum.TotalCorrect))
			fmt.Fprintln(out, ui.LabelValue("Accuracy", ui.Accuracy(sum.OverallAccuracy)))
			fmt.Fprintln(out, ui.LabelValue("Study time", fmt.Sprintf("%d min", sum.TotalTimeMinutes)))
			fmt.Fprintln(out, ui.LabelValue("Streak", fmt.Sprintf("%s %d days", ui.IconFlame, ov.StudyStreak)))
			fmt.Fprintln(out, ui.LabelValue("Flashcards due", ov.FlashcardsDue))
			fmt.Fprintln(out, "")

			if len(ov.WeakAreas) > 0 {
				fmt.Fprintln(out, ui.H2.Render("Weak areas"))
				for _, w := range ov.WeakAreas {
					fmt.Fprintf(out, "- %s %s %s\n", w.Topic, ui.Accuracy(w.Accuracy),
						ui.Muted.Render(fmt.Sprintf("(%d attempts, avg %ds)", w.Attempts, w.AvgTimeSec)))
				}
				fmt.Fprintln(out, "")
			}
			if len(ov.RecentActivity) > 0 {
				fmt.Fprintln(out, ui.H2.Render("Recent activity"))
				for _, act := range ov.RecentActivity {
					fmt.Fprintf(out, "- %s %d/%d %s\n", act.Topic, act.Score, act.Total, ui.Muted.Render(act.At.Local().Format(time.DateTime)))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "all", "Period (all|week|month|quarter)")
	return cmd
}
