// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator turns user input into commands, local actions or
// chat turns and drives every generation through the placeholder
// lifecycle. One generation runs at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/generate"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/session"
)

// ErrBusy is returned when a submission arrives while a generation runs.
var ErrBusy = errors.New("a generation is already in progress")

// chatStatus is the placeholder line while the chat model answers.
const chatStatus = "Nexus lagi mikir..."

// =============================================================================
// COLLABORATORS
// =============================================================================

// TranscriptSaver writes the timeline to disk.
type TranscriptSaver interface {
	Save(messages []model.Message) (string, error)
}

// Metrics records generation outcomes.
type Metrics interface {
	GenerationStarted(command string)
	GenerationFinished(command string, status model.GenerationStatus, category apperr.Category, took time.Duration)
	SubmissionRejected()
}

// PanelRedrawer renders a comic panel's image again from its stored prompt.
type PanelRedrawer interface {
	RedrawPanel(ctx context.Context, prompt string, panel int) (string, error)
}

type nopMetrics struct{}

func (nopMetrics) GenerationStarted(string) {}
func (nopMetrics) GenerationFinished(string, model.GenerationStatus, apperr.Category, time.Duration) {
}
func (nopMetrics) SubmissionRejected() {}

// Deps are the orchestrator's collaborators. Timeline, Registry and
// Sessions are required.
type Deps struct {
	Timeline    *model.Timeline
	Registry    *commands.Registry
	Sessions    *session.Manager
	Transcripts TranscriptSaver
	Metrics     Metrics
	Panels      PanelRedrawer
	Logger      *zap.Logger
}

// =============================================================================
// EFFECTS
// =============================================================================

// EffectKind is a UI action requested by a local command.
type EffectKind int

const (
	EffectHelp EffectKind = iota + 1
	EffectTerminal
	EffectFilter
	EffectQuit
)

// Effect asks the front end to do something outside the timeline.
type Effect struct {
	Kind EffectKind
	// Text carries the help text or the filter style.
	Text string
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator dispatches submissions.
type Orchestrator struct {
	d      Deps
	logger *zap.Logger

	busy atomic.Bool

	mu       sync.Mutex
	staged   string
	filter   string
	onEffect func(Effect)
}

// New returns an orchestrator and registers the local commands on
// d.Registry.
func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	o := &Orchestrator{d: d, logger: d.Logger}
	for _, cmd := range o.localCommands() {
		d.Registry.Register(cmd)
	}
	return o
}

// OnEffect registers the front end's effect handler.
func (o *Orchestrator) OnEffect(fn func(Effect)) {
	o.mu.Lock()
	o.onEffect = fn
	o.mu.Unlock()
}

// emit delivers an effect. Without a handler help text lands in the
// timeline instead.
func (o *Orchestrator) emit(e Effect) {
	o.mu.Lock()
	fn := o.onEffect
	o.mu.Unlock()
	if fn != nil {
		fn(e)
		return
	}
	if e.Kind == EffectHelp {
		o.d.Timeline.AddModel(e.Text)
	}
}

// Busy reports whether a generation is running.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

// Timeline returns the timeline the orchestrator writes to.
func (o *Orchestrator) Timeline() *model.Timeline { return o.d.Timeline }

// Sessions returns the session manager.
func (o *Orchestrator) Sessions() *session.Manager { return o.d.Sessions }

// Registry returns the command registry.
func (o *Orchestrator) Registry() *commands.Registry { return o.d.Registry }

// View returns the timeline as the active image filter shows it.
func (o *Orchestrator) View() []model.Message {
	return o.d.Timeline.Filter(o.Filter())
}

// Filter returns the active image-style filter, "" for none.
func (o *Orchestrator) Filter() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filter
}

// StagedAttachment returns the path staged for the next submission.
func (o *Orchestrator) StagedAttachment() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.staged
}

// Stage sets the file attached to the next submission. An empty path
// clears it.
func (o *Orchestrator) Stage(path string) {
	o.mu.Lock()
	o.staged = strings.TrimSpace(path)
	o.mu.Unlock()
}

func (o *Orchestrator) takeStaged() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.staged
	o.staged = ""
	return p
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit handles one line of user input. Local commands run at once;
// everything else takes the submission gate and returns ErrBusy while
// another generation runs. Submit blocks until the generation finishes;
// failures end up in the timeline, not in the returned error.
func (o *Orchestrator) Submit(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	in, _, err := o.d.Registry.Expand(commands.ParseInput(raw))
	if err != nil {
		o.d.Timeline.AddUser(raw, "")
		o.addError(raw, err)
		return nil
	}
	if cmd := o.d.Registry.Get(in.Name); in.IsCommand && cmd != nil && cmd.IsLocal() {
		o.d.Timeline.AddUser(raw, "")
		o.runLocal(ctx, cmd, in)
		return nil
	}

	if !o.busy.CompareAndSwap(false, true) {
		o.d.Metrics.SubmissionRejected()
		return ErrBusy
	}
	defer o.busy.Store(false)
	o.dispatch(ctx, raw, in, o.takeStaged())
	return nil
}

// Retry resubmits the text behind the latest error as a new invocation.
// The errored message and everything after it are dropped first. The
// original attachment is not resent.
func (o *Orchestrator) Retry(ctx context.Context) error {
	last, ok := o.d.Timeline.LastError()
	if !ok || last.SourceText == "" {
		return apperr.NewBadRequest("Nggak ada yang perlu diulang.")
	}
	if !o.busy.CompareAndSwap(false, true) {
		o.d.Metrics.SubmissionRejected()
		return ErrBusy
	}
	defer o.busy.Store(false)

	if _, err := o.d.Timeline.TruncateFrom(last.ID); err != nil {
		return err
	}
	o.logger.Info("retry", zap.String("source", last.SourceText))
	in, _, err := o.d.Registry.Expand(commands.ParseInput(last.SourceText))
	if err != nil {
		o.d.Timeline.AddUser(last.SourceText, "")
		o.addError(last.SourceText, err)
		return nil
	}
	if cmd := o.d.Registry.Get(in.Name); in.IsCommand && cmd != nil && cmd.IsLocal() {
		o.d.Timeline.AddUser(last.SourceText, "")
		o.runLocal(ctx, cmd, in)
		return nil
	}
	o.dispatch(ctx, last.SourceText, in, "")
	return nil
}

// dispatch runs with the gate held. It appends the user message, loads
// the attachment at path and routes to a generation command, the next
// comic panel or chat.
func (o *Orchestrator) dispatch(ctx context.Context, raw string, in commands.Input, path string) {
	var att *model.Attachment
	if path != "" {
		loaded, err := model.LoadAttachment(path)
		o.d.Timeline.AddUser(raw, filepath.Base(path))
		if err != nil {
			o.addError(raw, err)
			return
		}
		att = loaded
	} else {
		o.d.Timeline.AddUser(raw, "")
	}

	if in.IsCommand {
		if cmd := o.d.Registry.Get(in.Name); cmd != nil && cmd.Generate != nil {
			o.generate(ctx, cmd, raw, in, att)
			return
		}
	}
	if o.d.Sessions.ComicActive() && generate.IsContinuation(raw) {
		if cmd := o.d.Registry.Get(generate.ContinueCommand); cmd != nil {
			o.generate(ctx, cmd, raw, in, att)
			return
		}
	}
	o.chat(ctx, raw, att)
}

// generate runs cmd through pending, generating and complete or error.
// Every path out records exactly one finished generation; anything that
// does not reach completion counts as an error.
func (o *Orchestrator) generate(ctx context.Context, cmd *commands.Command, raw string, in commands.Input, att *model.Attachment) {
	start := time.Now()
	log := o.logger.With(zap.String("command", cmd.Name))
	o.d.Metrics.GenerationStarted(cmd.Name)

	status, cat := model.StatusError, apperr.Unknown
	defer func() {
		o.d.Metrics.GenerationFinished(cmd.Name, status, cat, time.Since(start))
	}()

	ph := o.d.Timeline.AddPlaceholder(cmd.Type, cmd.Status, raw)
	text, rawFlags := commands.ParseFlags(in.Args)
	flags, err := cmd.Schema.Validate(rawFlags)
	if err != nil {
		log.Debug("flags rejected", zap.Error(err))
		cat = o.fail(ph.ID, err)
		return
	}
	if err := o.d.Timeline.Start(ph.ID, cmd.Status); err != nil {
		log.Warn("start placeholder", zap.Error(err))
		return
	}

	inv := &commands.Invocation{
		Command:       cmd,
		Input:         in.Raw,
		Text:          text,
		Flags:         flags,
		RawFlags:      rawFlags,
		Attachment:    att,
		PlaceholderID: ph.ID,
		Timeline:      o.d.Timeline,
	}
	patch, err := cmd.Generate(ctx, inv)
	if err != nil {
		cat = o.fail(ph.ID, err)
		log.Info("generation failed", zap.String("category", string(cat)), zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	}
	if err := o.d.Timeline.Complete(ph.ID, patch); err != nil {
		// The timeline was cleared while the handler ran.
		log.Info("completion dropped", zap.Error(err))
		return
	}
	log.Info("generation complete", zap.Duration("took", time.Since(start)))
	status, cat = model.StatusComplete, ""
}

// chat sends raw to the persona's conversation under a text placeholder.
func (o *Orchestrator) chat(ctx context.Context, raw string, att *model.Attachment) {
	start := time.Now()
	o.d.Metrics.GenerationStarted("chat")

	status, cat := model.StatusError, apperr.Unknown
	defer func() {
		o.d.Metrics.GenerationFinished("chat", status, cat, time.Since(start))
	}()

	ph := o.d.Timeline.AddPlaceholder(model.GenText, chatStatus, raw)
	if err := o.d.Timeline.Start(ph.ID, chatStatus); err != nil {
		o.logger.Warn("start placeholder", zap.Error(err))
		return
	}

	reply, err := o.sendChat(ctx, raw, att)
	if err != nil {
		cat = o.fail(ph.ID, err)
		o.logger.Info("chat failed", zap.String("category", string(cat)), zap.Error(err))
		return
	}
	if err := o.d.Timeline.Complete(ph.ID, model.Patch{Text: model.Ptr(reply)}); err != nil {
		o.logger.Info("chat completion dropped", zap.Error(err))
		return
	}
	status, cat = model.StatusComplete, ""
}

func (o *Orchestrator) sendChat(ctx context.Context, raw string, att *model.Attachment) (string, error) {
	c, err := o.d.Sessions.Chat(ctx)
	if err != nil {
		return "", err
	}
	return c.Send(ctx, raw, att)
}

// fail classifies err onto the placeholder and returns the category.
func (o *Orchestrator) fail(id string, err error) apperr.Category {
	c := apperr.Classify(err)
	if ferr := o.d.Timeline.Fail(id, c.Message); ferr != nil {
		o.logger.Info("failure dropped", zap.Error(ferr))
	}
	return c.Category
}

// addError appends a standalone error message that can be retried.
func (o *Orchestrator) addError(source string, err error) {
	c := apperr.Classify(err)
	o.d.Timeline.Append(model.Message{
		Role:             model.RoleModel,
		Text:             c.Message,
		GenerationStatus: model.StatusError,
		SourceText:       source,
	})
}

// notice appends a plain model message.
func (o *Orchestrator) notice(format string, args ...any) {
	o.d.Timeline.AddModel(fmt.Sprintf(format, args...))
}
