package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/crate/internal/api"
	"github.com/franz/crate/internal/util"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the collections over a read-only HTTP API",
	Long: `Serve every collection found in the data dir over a read-only JSON API,
with Prometheus metrics on /metrics.

With --watch the whitelisted media dirs are scanned and watched, and
changes are ingested into the configured collection while serving.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default 127.0.0.1:8420)")
	serveCmd.Flags().Bool("watch", false, "scan and watch the media dirs while serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")

	return withApp(func(a *app) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := a.manager.OpenAll(ctx); err != nil {
			return err
		}
		c, err := a.collection(ctx)
		if err != nil {
			return err
		}

		watchErr := make(chan error, 1)
		if watch {
			roots, exclude, err := scanRoots(a, nil)
			if err != nil {
				return err
			}
			s := newScanner(a, roots, exclude)
			if err := scanAndIngest(ctx, a, c, s, roots); err != nil {
				return err
			}
			w, err := startWatcher(a, c, s, roots)
			if err != nil {
				return err
			}
			go func() { watchErr <- w.Run(ctx) }()
			util.InfoLog("Watching %d directories", len(w.WatchList()))
		}

		srv := &http.Server{
			Addr:              a.cfg.Listen,
			Handler:           api.New(a.manager, a.users),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			util.InfoLog("Serving %d collections on http://%s", len(a.manager.IDs()), a.cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		case err := <-watchErr:
			if err != nil {
				util.ErrorLog("Watcher stopped: %v", err)
			}
		case <-ctx.Done():
		}

		util.InfoLog("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})
}
