package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dusk-indust/systrav/internal/events"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the change feed of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			req.Header.Set("Accept", "text/event-stream")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return fmt.Errorf("watch: %s returned %s", url, resp.Status)
			}

			out := cmd.OutOrStdout()
			for f := range events.ReadEvents(ctx, resp.Body) {
				if f.Err != nil {
					a.logger.Warn("skipping frame", zap.Error(f.Err))
					continue
				}
				fmt.Fprintf(out, "%s %s %s\n", f.Event.Time.Format(time.RFC3339), f.Event.Kind, f.Event.Subject)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/events", "change feed URL of a running serve")
	return cmd
}
