package ui

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer renders orchestrator progress as a bubbletea program.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	done    chan struct{}
	started bool
}

// NewTUIRenderer creates a TUI renderer. Fails if cfg.Output is not a TTY.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}
	return &TUIRenderer{cfg: cfg, done: make(chan struct{})}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	model := newRunModel(r.cfg.NoColor)

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(errMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program == nil {
		return nil
	}
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type progressMsg ProgressEvent
type errMsg ErrorEvent
type completeMsg CompletionStats

type runModel struct {
	stage    Stage
	current  int
	total    int
	crate    string
	errors   int
	warnings int
	stats    CompletionStats
	done     bool
	spinner  spinner.Model
	bar      progress.Model
	noColor  bool
}

func newRunModel(noColor bool) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	bar := progress.New(progress.WithDefaultGradient())
	if noColor {
		bar = progress.New(progress.WithoutColor())
	}
	return runModel{spinner: s, bar: bar, noColor: noColor}
}

func (m runModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case progressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.crate = msg.Crate
		return m, nil
	case errMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		return m, nil
	case completeMsg:
		m.done = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m runModel) View() string {
	if m.done {
		return fmt.Sprintf("Complete: %d crates (%d ok, %d failed) in %s\n",
			m.stats.Crates, m.stats.Ok, m.stats.Failed, m.stats.Duration.Round(1e8))
	}

	var ratio float64
	if m.total > 0 {
		ratio = float64(m.current) / float64(m.total)
	}

	header := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s %s", m.spinner.View(), m.stage))
	return fmt.Sprintf("%s\n%s\n%d/%d crates · %s · %d errors, %d warnings\n",
		header, m.bar.ViewAs(ratio), m.current, m.total, m.crate, m.errors, m.warnings)
}
