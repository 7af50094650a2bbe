// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/config"
	"github.com/ipapadil7-star/nexus/internal/logging"
)

// Build information, set with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Options lets tests swap the process surroundings.
type Options struct {
	// Backend replaces the Gemini backend.
	Backend backend.Backend
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	// Interactive overrides TTY detection when set.
	Interactive *bool
}

// runner carries the global flags and what PersistentPreRunE built.
type runner struct {
	opts Options

	configPath  string
	metricsAddr string
	verbose     bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the nexus command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "nexus",
		Short: "Nexus - asisten generatif berbahasa Indonesia",
		Long: `Nexus menggabungkan chat, gambar, video, audio, dokumen dan komik
dalam satu percakapan.

Jalankan tanpa argumen untuk membuka antarmuka interaktif.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: r.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if r.logger != nil {
				_ = r.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.interactive() {
				return r.runTUI(cmd.Context())
			}
			return r.runREPL(cmd.Context())
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperr.Wrap(apperr.BadRequest, err, err.Error())
	})

	root.PersistentFlags().StringVar(&r.configPath, "config", "", "Path file konfigurasi (default ~/.nexus/config.toml)")
	root.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "Log level debug")
	root.PersistentFlags().StringVar(&r.metricsAddr, "metrics-addr", "", "Alamat host:port untuk /metrics")

	root.AddCommand(
		r.chatCommand(),
		r.askCommand(),
		r.macrosCommand(),
		r.versionCommand(),
	)
	return root
}

// setup loads the config and builds the logger.
func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	var err error
	if r.configPath != "" {
		r.cfg, err = config.LoadFromPath(r.configPath)
	} else {
		r.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if r.metricsAddr != "" {
		r.cfg.Metrics.Addr = r.metricsAddr
	}
	config.SetGlobal(r.cfg)

	logFile, err := r.cfg.LogFile()
	if err != nil {
		return err
	}
	r.logger, err = logging.New(logging.Options{Level: r.cfg.Log.Level, File: logFile, Verbose: r.verbose})
	if err != nil {
		return err
	}
	lipgloss.SetColorProfile(ColorProfile())
	r.logger.Debug("starting", zap.String("command", cmd.Name()), zap.String("version", Version))
	return nil
}

func (r *runner) interactive() bool {
	if r.opts.Interactive != nil {
		return *r.opts.Interactive
	}
	return Interactive()
}

// newApp wires an App from the loaded config.
func (r *runner) newApp(ctx context.Context) (*App, error) {
	return NewApp(ctx, r.cfg, r.logger, r.opts.Backend)
}

// watchPath is the file the config watcher follows.
func (r *runner) watchPath() string {
	if r.configPath != "" {
		return r.configPath
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		DisplayError(os.Stderr, err)
		return ExitCode(err)
	}
	return ExitSuccess
}
