package root

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/report"
	"github.com/conorfennell/taxtutor/internal/ui"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export progress or the tutor conversation as JSON",
	}
	cmd.AddCommand(newExportProgressCmd(), newExportChatCmd())
	return cmd
}

// writeExport writes v as indented JSON to path, or to stdout for "-".
func writeExport(cmd *cobra.Command, path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(raw)
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), ui.Good.Render(ui.IconExport+" Exported")+" "+path)
	return nil
}

func newExportProgressCmd() *cobra.Command {
	var period, output string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Export the progress summary and attempt history",
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
			if output == "" {
				output = report.ProgressFilename(now)
			}
			return writeExport(cmd, output, report.BuildProgressExport(a.store.Progress(), a.store.AttemptLogs(), p, now))
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "all", "Period (all|week|month|quarter)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default taxtutor-progress-<date>.json)")
	return cmd
}

func parseIndices(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid message index %q", part)
		}
		out = append(out, i)
	}
	return out, nil
}

func newExportChatCmd() *cobra.Command {
	var indices, output string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Export the tutor conversation, or selected messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			now := time.Now()
			msgs := a.store.ChatMessages()
			var doc report.ChatExport
			if indices != "" {
				idx, err := parseIndices(indices)
				if err != nil {
					return err
				}
				doc = report.ExportSelected(msgs, idx, now)
			} else {
				doc = report.ExportChat(msgs, now)
			}
			if output == "" {
				output = report.ChatFilename(now, indices != "")
			}
			return writeExport(cmd, output, doc)
		},
	}
	cmd.Flags().StringVar(&indices, "indices", "", "Comma separated message indices to export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import exported data",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "chat <file|->",
		Short: "Replace the tutor conversation with an exported one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			msgs, err := report.ParseChatImport(raw)
			if err != nil {
				return err
			}

			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			a.store.ReplaceSnapshot(background(cmd), domain.SnapshotPatch{ChatMessages: &msgs})
			a.warnPersist(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconImport+" Imported")+" "+fmt.Sprintf("%d messages", len(msgs)))
			return nil
		},
	})
	return cmd
}
