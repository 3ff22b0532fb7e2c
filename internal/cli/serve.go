package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/intentlayer/intentlayer/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	port      int
	tokenFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the Intent Layer HTTP server.

The server provides:
  - Dashboard with the six workflow stages
  - JSON API for every workflow action
  - Websocket change feed at /api/ws
  - Health check endpoint

Example:
  intentlayer serve --port 8080`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on (overrides config)")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "where to write the dashboard token (overrides config)")
}

// serveOptions merges explicitly set flags over the loaded config.
func serveOptions(cmd *cobra.Command) server.Options {
	opts := server.Options{
		Port:      cfg.Port,
		TokenFile: cfg.TokenFile,
		Location:  location(),
		Logger:    logger,
	}
	if cmd.Flags().Changed("port") {
		opts.Port = port
	}
	if cmd.Flags().Changed("token-file") {
		opts.TokenFile = tokenFile
	}
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := serveOptions(cmd)
	srv := server.New(newFlow(), opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Intent Layer running on http://localhost:%d\n", opts.Port)
	fmt.Fprintf(out, "Dashboard: %s\n", srv.DashboardURL("localhost"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
