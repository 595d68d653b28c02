package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/offsite/pagekeeper"
)

type globalFlags struct {
	configPath string
	pagePath   string
	logLevel   string
}

// NewRootCmd returns the root command.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "pagekeeper",
		Short:         "Persist the edits of a contenteditable page across reloads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to pagekeeper.yaml")
	pf.StringVar(&g.pagePath, "page", "", "HTML page (overrides page.path)")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(newServeCmd(g, stderr))
	cmd.AddCommand(newMCPCmd(g, stderr))
	cmd.AddCommand(newSnapshotCmd(g, stdout, stderr))
	cmd.AddCommand(newRestoreCmd(g, stdout, stderr))
	cmd.AddCommand(newDiagCmd(g, stdout, stderr))
	return cmd
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

// loadConfig reads --config, or the defaults, and applies --page. A
// positional page argument wins over both.
func (g *globalFlags) loadConfig(args []string) (*pagekeeper.Config, error) {
	cfg := pagekeeper.DefaultConfig()
	if g.configPath != "" {
		var err error
		if cfg, err = pagekeeper.LoadConfigFile(g.configPath); err != nil {
			return nil, err
		}
	}
	if g.pagePath != "" {
		cfg.Page.Path = g.pagePath
	}
	if len(args) > 0 {
		cfg.Page.Path = args[0]
	}
	if cfg.Page.Path == "" {
		return nil, fmt.Errorf("no page: set page.path or pass --page")
	}
	return cfg, nil
}

// open loads the configured page and restores its stored edits.
func (g *globalFlags) open(ctx context.Context, args []string, stderr io.Writer, opts ...pagekeeper.Option) (*pagekeeper.Keeper, pagekeeper.RestoreResult, error) {
	var res pagekeeper.RestoreResult
	cfg, err := g.loadConfig(args)
	if err != nil {
		return nil, res, err
	}
	logger := newLogger(stderr, g.logLevel)
	k, err := pagekeeper.Open(ctx, cfg, append([]pagekeeper.Option{pagekeeper.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, res, err
	}
	if res, err = k.Start(ctx); err != nil {
		k.Close()
		return nil, res, err
	}
	return k, res, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
