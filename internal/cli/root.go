// Package cli wires the skyrot commands.
package cli

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/skyrot/internal/config"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "skyrot",
		Short:        "skyrot - celestial and Euler rotation service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("SKYROT_CONFIG"), "YAML config file (optional)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(evalCmd(opts))
	cmd.AddCommand(listCmd(opts))
	return cmd
}

// load reads the configuration, logging to w. The --log-level flag wins over
// the file and environment.
func (o *rootOptions) load(w io.Writer) (config.Config, *slog.Logger, error) {
	boot, err := newLogger(w, o.logLevel)
	if err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := config.Load(o.configPath, boot)
	if err != nil {
		return cfg, boot, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	logger, err := newLogger(w, cfg.LogLevel)
	if err != nil {
		return cfg, boot, err
	}
	return cfg, logger, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	})
	return slog.New(h), nil
}
