// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/config"
	"github.com/ipapadil7-star/nexus/internal/orchestrator"
)

const replWelcome = "Nexus siap. Ketik /help untuk daftar perintah, /keluar untuk berhenti."

func (r *runner) chatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Percakapan baris-per-baris tanpa layar penuh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.runREPL(cmd.Context())
		},
	}
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of input per prompt.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close()
}

// linerReader adds line editing and a persistent history.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	lr := &linerReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(lr.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return lr
}

func (lr *linerReader) Prompt(prompt string) (string, error) {
	input, err := lr.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		lr.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions.
func (lr *linerReader) Close() {
	defer lr.line.Close()
	if err := os.MkdirAll(filepath.Dir(lr.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(lr.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	lr.line.WriteHistory(f)
}

// scanReader reads piped input without prompting.
type scanReader struct {
	sc *bufio.Scanner
}

func (s *scanReader) Prompt(string) (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scanReader) Close() {}

func (r *runner) lineReader() lineReader {
	if r.opts.In == os.Stdin && IsTTY() {
		return newLinerReader()
	}
	return &scanReader{sc: bufio.NewScanner(r.opts.In)}
}

// =============================================================================
// REPL
// =============================================================================

// runREPL runs the line interface with the same background services as
// the TUI.
func (r *runner) runREPL(ctx context.Context) error {
	app, err := r.newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	r.startServices(gctx, g, app)

	err = r.repl(gctx, app, r.lineReader())
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func (r *runner) repl(ctx context.Context, app *App, in lineReader) error {
	defer in.Close()

	markdown := r.opts.Out == os.Stdout && IsStdoutTTY()
	pr := newPrinter(r.opts.Out, markdown, r.cfg.UI.GlamourStyle, 80)
	unsubscribe := app.Timeline.Subscribe(pr.handle)
	defer unsubscribe()

	var quit atomic.Bool
	app.Orch.OnEffect(func(e orchestrator.Effect) {
		if e.Kind == orchestrator.EffectQuit {
			quit.Store(true)
			return
		}
		pr.effect(e)
	})
	defer app.Orch.OnEffect(nil)

	fmt.Fprintln(r.opts.Out, mutedStyle.Render(replWelcome))
	for !quit.Load() && ctx.Err() == nil {
		line, err := in.Prompt(promptStyle.Render("nexus> "))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.opts.Out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := app.Orch.Submit(ctx, line); err != nil {
			r.logger.Debug("submission failed", zap.Error(err))
			fmt.Fprintln(r.opts.Err, errorStyle.Render(submitNotice(err)))
		}
	}
	return nil
}

func submitNotice(err error) string {
	if errors.Is(err, orchestrator.ErrBusy) {
		return orchestrator.BusyMessage
	}
	return apperr.Classify(err).Message
}
