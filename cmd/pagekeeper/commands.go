package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/offsite/pagekeeper"
)

func newServeCmd(g *globalFlags, stderr io.Writer) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the page and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := newLogger(stderr, g.logLevel)
			k, _, err := g.open(ctx, nil, stderr)
			if err != nil {
				return err
			}
			defer k.Stop(context.Background())

			if addr == "" {
				addr = k.Config().HTTP.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           k.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				logger.Info("pagekeeper: listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errc:
				return err
			}
			logger.Info("pagekeeper: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func newMCPCmd(g *globalFlags, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose the page as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			k, _, err := g.open(ctx, nil, stderr)
			if err != nil {
				return err
			}
			defer k.Stop(context.Background())

			srv := mcp.NewServer(&mcp.Implementation{Name: "pagekeeper", Version: "1.0.0"}, nil)
			k.RegisterMCP(srv)
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		},
	}
}

func newSnapshotCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <page.html>",
		Short: "Print the snapshot a save of the page would write",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// A private store: the page is read as-is, nothing restored or written.
			k, _, err := g.open(cmd.Context(), args, stderr, pagekeeper.WithStore(pagekeeper.NewMemoryStore()))
			if err != nil {
				return err
			}
			defer k.Close()
			snap, err := k.CurrentSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			return writeIndented(stdout, snap)
		},
	}
}

func newRestoreCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <page.html>",
		Short: "Print the page with the stored snapshot applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, res, err := g.open(cmd.Context(), args, stderr)
			if err != nil {
				return err
			}
			defer k.Close()
			if !res.Found {
				return pagekeeper.ErrNoSnapshot
			}
			page, err := k.Render(cmd.Context())
			if err != nil {
				return err
			}
			_, err = stdout.Write(page)
			return err
		},
	}
}

func newDiagCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Run a save and verify it reads back",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _, err := g.open(cmd.Context(), args, stderr)
			if err != nil {
				return err
			}
			defer k.Close()
			d, err := k.RunDiagnostics(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeIndented(stdout, d); err != nil {
				return err
			}
			if !d.OK {
				return fmt.Errorf("diagnostics failed: %s", d.Error)
			}
			return nil
		},
	}
}
