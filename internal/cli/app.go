// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/config"
	"github.com/ipapadil7-star/nexus/internal/generate"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/orchestrator"
	"github.com/ipapadil7-star/nexus/internal/session"
	"github.com/ipapadil7-star/nexus/internal/storage"
	"github.com/ipapadil7-star/nexus/internal/telemetry"
)

const missingKeyMessage = "API key belum diatur. Isi GEMINI_API_KEY atau [gemini] api_key di config.toml."

// =============================================================================
// APP
// =============================================================================

// App is one fully wired Nexus instance.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *telemetry.Metrics

	Backend backend.Backend
	// Gemini is the concrete backend when one was created here, for
	// settings that change on reload.
	Gemini *backend.Gemini

	outcomes *outcomeRecorder

	Macros   *storage.MacroDB
	Media    *storage.MediaStore
	Timeline *model.Timeline
	Registry *commands.Registry
	Sessions *session.Manager
	Orch     *orchestrator.Orchestrator
}

// NewApp wires storage, the backend and the orchestrator. A nil be
// creates the Gemini backend from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, be backend.Backend) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: telemetry.New(), Backend: be}
	a.outcomes = &outcomeRecorder{Metrics: a.Metrics}

	if be == nil {
		g, err := backend.NewGemini(ctx, cfg.Backend(), logger.Named("backend"))
		if errors.Is(err, backend.ErrMissingAPIKey) {
			return nil, apperr.Wrap(apperr.CredentialInvalid, err, missingKeyMessage)
		}
		if err != nil {
			return nil, err
		}
		a.Backend, a.Gemini = g, g
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if a.Macros, err = storage.OpenMacroDB(filepath.Join(dataDir, "macros.db")); err != nil {
		return nil, err
	}
	if a.Media, err = storage.NewMediaStore(dataDir); err != nil {
		a.Macros.Close()
		return nil, err
	}
	transcripts, err := storage.NewTranscriptStore(dataDir)
	if err != nil {
		a.Macros.Close()
		return nil, err
	}

	a.Registry = commands.NewRegistry(a.Macros)
	if err := a.Registry.LoadMacros(ctx); err != nil {
		logger.Warn("loading macros failed", zap.Error(err))
	}

	a.Sessions = session.NewManager(a.Backend, cfg.Session())
	handlers := generate.Register(a.Registry, generate.Deps{
		Backend:      a.Backend,
		Sessions:     a.Sessions,
		Media:        a.Media,
		Previews:     a.Media,
		Logger:       logger.Named("generate"),
		VideoTimeout: cfg.VideoTimeout(),
	})

	a.Timeline = model.NewTimeline()
	a.Orch = orchestrator.New(orchestrator.Deps{
		Timeline:    a.Timeline,
		Registry:    a.Registry,
		Sessions:    a.Sessions,
		Transcripts: transcripts,
		Metrics:     a.outcomes,
		Panels:      handlers,
		Logger:      logger.Named("orchestrator"),
	})
	return a, nil
}

// Reconfigure applies a reloaded config to the running instance. Models
// and storage paths need a restart.
func (a *App) Reconfigure(cfg *config.Config) {
	a.Orch.Reconfigure(cfg.Persona(), cfg.Chat.OCR)
	if a.Gemini != nil {
		a.Gemini.SetPollInterval(cfg.PollInterval())
	}
	a.Logger.Info("config applied",
		zap.String("persona", string(cfg.Persona())),
		zap.Bool("ocr", cfg.Chat.OCR),
		zap.Duration("poll_interval", cfg.PollInterval()))
}

// LastFailure returns the category of the most recent failed generation.
func (a *App) LastFailure() (apperr.Category, bool) {
	return a.outcomes.last()
}

// Close releases the macro database and drops cached video previews.
func (a *App) Close() error {
	if err := a.Media.PurgePreviews(); err != nil {
		a.Logger.Debug("purging previews failed", zap.Error(err))
	}
	if err := a.Macros.Close(); err != nil {
		return fmt.Errorf("close macro db: %w", err)
	}
	return nil
}

// outcomeRecorder forwards to the Prometheus metrics and remembers the
// last failure category for exit codes.
type outcomeRecorder struct {
	orchestrator.Metrics

	mu      sync.Mutex
	failure apperr.Category
}

func (r *outcomeRecorder) GenerationFinished(command string, status model.GenerationStatus, category apperr.Category, took time.Duration) {
	r.Metrics.GenerationFinished(command, status, category, took)
	if status == model.StatusError {
		r.mu.Lock()
		r.failure = category
		r.mu.Unlock()
	}
}

func (r *outcomeRecorder) last() (apperr.Category, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure, r.failure != ""
}
