// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ipapadil7-star/nexus/internal/config"
	"github.com/ipapadil7-star/nexus/internal/ui/chat"
	"github.com/ipapadil7-star/nexus/internal/ui/styles"
)

// runTUI runs the full-screen interface alongside the config watcher and
// the metrics endpoint. Quitting the interface stops the others.
func (r *runner) runTUI(ctx context.Context) error {
	app, err := r.newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := chat.New(ctx, app.Orch, chat.Options{
		Theme:        styles.NewTheme(r.cfg.UI.Theme),
		GlamourStyle: r.cfg.UI.GlamourStyle,
		User:         os.Getenv("USER"),
		Logger:       r.logger.Named("ui"),
	})
	defer m.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx))
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	r.startServices(gctx, g, app)
	return g.Wait()
}

// startServices adds the config watcher and the metrics server to g.
// Neither failing stops the conversation; they log and bow out.
func (r *runner) startServices(ctx context.Context, g *errgroup.Group, app *App) {
	if path := r.watchPath(); path != "" {
		w, err := config.NewWatcher(path, app.Reconfigure, r.logger.Named("config"))
		if err != nil {
			r.logger.Info("config watcher disabled", zap.Error(err))
		} else {
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	if addr := r.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			if err := app.Metrics.Serve(ctx, addr, r.logger.Named("metrics")); err != nil {
				r.logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		})
	}
}
