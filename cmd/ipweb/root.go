package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"ipweb/internal/app"
	"ipweb/internal/config"
)

type options struct {
	configPath string
	host       string
	port       int
	strategy   string
	fallback   string
	logLevel   string
	logFormat  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "ipweb",
		Short: "Serve a page showing this machine's local IP address",
		Long: `ipweb starts a web server whose home page shows the server's local IP address.

If the address cannot be determined the page still renders and shows
"Unable to fetch IP" (configurable) instead.

Examples:
  ipweb                          # Serve on 0.0.0.0:8080 (or the next free port)
  ipweb -p 9000                  # Serve on port 9000
  ipweb --strategy interface     # Read the address from the network interfaces
  ipweb -c ipweb.yaml            # Load settings from a YAML file`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), app.New(cfg, app.Output{Log: stderr, Banner: stdout}))
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	f.StringVar(&opts.host, "host", "", "Host to listen on (default 0.0.0.0)")
	f.IntVarP(&opts.port, "port", "p", config.DefaultPort, "Port to listen on")
	f.StringVar(&opts.strategy, "strategy", "", "Address lookup strategy: hostname, route or interface")
	f.StringVar(&opts.fallback, "fallback-text", "", "Text shown when the address cannot be determined")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format: console or json")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadConfig layers flags that were set explicitly over file and env settings.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = opts.host
	}
	if f.Changed("port") {
		cfg.Port = opts.port
	}
	if f.Changed("strategy") {
		cfg.Strategy = opts.strategy
	}
	if f.Changed("fallback-text") {
		cfg.FallbackText = opts.fallback
	}
	if f.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run starts a, waits for SIGINT/SIGTERM or ctx, then stops it.
func run(ctx context.Context, a *fx.App) error {
	if err := a.Err(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	startCtx, cancel := context.WithTimeout(ctx, a.StartTimeout())
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return err
	}

	select {
	case <-a.Wait():
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), a.StopTimeout())
	defer cancel()
	return a.Stop(stopCtx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ipweb", Version)
		},
	}
}
