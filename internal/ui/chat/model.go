// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/orchestrator"
	"github.com/ipapadil7-star/nexus/internal/terminal"
	"github.com/ipapadil7-star/nexus/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// refreshMsg means the timeline changed or an effect is queued.
type refreshMsg struct{}

// submitDoneMsg carries the result of Submit or Retry.
type submitDoneMsg struct{ err error }

// =============================================================================
// BRIDGE
// =============================================================================

// bridge turns timeline events and effects into Bubble Tea messages.
// Listeners run on the writer goroutine, so they only poke a channel.
type bridge struct {
	signal chan struct{}

	mu      sync.Mutex
	effects []orchestrator.Effect

	unsubscribe func()
}

func newBridge(orch *orchestrator.Orchestrator) *bridge {
	b := &bridge{signal: make(chan struct{}, 1)}
	b.unsubscribe = orch.Timeline().Subscribe(func(model.Event) { b.poke() })
	orch.OnEffect(b.push)
	return b
}

func (b *bridge) poke() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *bridge) push(e orchestrator.Effect) {
	b.mu.Lock()
	b.effects = append(b.effects, e)
	b.mu.Unlock()
	b.poke()
}

func (b *bridge) drain() []orchestrator.Effect {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.effects
	b.effects = nil
	return out
}

// wait blocks until the next wake-up.
func (b *bridge) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.signal:
			return refreshMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// =============================================================================
// MODEL
// =============================================================================

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayTerminal
)

// Options configures the chat view.
type Options struct {
	Theme *styles.Theme
	// GlamourStyle is a glamour standard style name or "auto".
	GlamourStyle string
	// User is the name shown in the terminal prompt.
	User   string
	Logger *zap.Logger
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx    context.Context
	orch   *orchestrator.Orchestrator
	bridge *bridge
	logger *zap.Logger

	theme    *styles.Theme
	keys     KeyMap
	renderer *renderer

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	completer   *commands.Completer
	completions commands.CompletionState

	// notice is a transient line above the input.
	notice string

	overlay  overlay
	helpView viewport.Model

	shell     *terminal.Shell
	termLines []string
	termInput textinput.Model
	histIdx   int
}

// New returns a chat model bound to orch.
func New(ctx context.Context, orch *orchestrator.Orchestrator, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("dark")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	in := textinput.New()
	in.Placeholder = "Ketik pesan atau /perintah..."
	in.Prompt = "› "
	in.PromptStyle = opts.Theme.InputPrompt
	in.CharLimit = 4000
	in.Focus()

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Generating

	return Model{
		ctx:       ctx,
		orch:      orch,
		bridge:    newBridge(orch),
		logger:    opts.Logger,
		theme:     opts.Theme,
		keys:      DefaultKeyMap(),
		renderer:  newRenderer(opts.Theme, opts.GlamourStyle),
		input:     in,
		spinner:   sp,
		completer: commands.NewCompleter(orch.Registry()),
		shell:     terminal.New(opts.User),
		termInput: ti,
		histIdx:   -1,
	}
}

// Init starts the spinner and the timeline listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.bridge.wait(m.ctx))
}

// Close detaches the model from the timeline and the effect stream.
func (m Model) Close() {
	m.bridge.unsubscribe()
	m.orch.OnEffect(nil)
}
