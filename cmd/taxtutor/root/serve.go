package root

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/taxtutor/internal/ui"
	"github.com/conorfennell/taxtutor/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and the chat relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			client, err := a.llmClient()
			if err != nil {
				return err
			}
			if !client.Configured() {
				a.log.Warn("no API key configured; chat endpoints will fail until GROQ_API_KEY is set")
			}

			handler := web.NewServer(web.Options{
				Store:        a.store,
				LLM:          client,
				Syncer:       a.syncer(),
				SystemPrompt: a.cfg.LLM.SystemPrompt,
				Logger:       a.log,
			})
			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(background(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.log.Info("server listening", "addr", srv.Addr, "model", client.Model())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
				defer cancel()
				a.log.Info("shutting down")
				return srv.Shutdown(shutdownCtx)
			})

			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconBook, "TaxTutor")+" "+ui.Muted.Render("listening on "+srv.Addr))
			return g.Wait()
		},
	}
}
