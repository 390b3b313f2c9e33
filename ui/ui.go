// Package ui provides the read-along viewer: the text being read, with the
// spoken sentence and word highlighted, and a status bar.
package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/readalong/tts"
	ttssync "github.com/dgnsrekt/readalong/tts/sync"
)

type keyMap struct {
	Pause  key.Binding
	Stop   key.Binding
	Replay key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "pause/resume"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Replay: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "read again"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// NewProgram returns a Tea program that reads source aloud through
// controller. The controller's callbacks are routed into the program.
func NewProgram(cfg Config, source string, controller *tts.Controller) *tea.Program {
	log.Debug("Starting read-along viewer", "engine", cfg.Engine, "bytes", len(source))

	profile := termenv.EnvColorProfile()
	if cfg.NoColor {
		profile = termenv.Ascii
	}
	lipgloss.SetColorProfile(profile)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(newModel(cfg, source, controller, newMarker(cfg.Highlight, profile)), opts...)
	controller.SetCallbacks(tts.ProgramCallbacks(p.Send))
	controller.OnStateChange(tts.StateChangeFunc(p.Send))
	return p
}

type model struct {
	cfg        Config
	controller *tts.Controller
	source     string
	keys       keyMap

	pager   pagerModel
	status  statusBar
	spinner spinner.Model

	width    int
	height   int
	quitting bool
}

func newModel(cfg Config, source string, controller *tts.Controller, marker ttssync.Marker) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		cfg:        cfg,
		controller: controller,
		source:     source,
		keys:       defaultKeyMap(),
		pager:      newPagerModel(source, int(cfg.MaxWidth), marker), //nolint:gosec
		status:     newStatusBar(),
		spinner:    sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.play())
}

func (m model) play() tea.Cmd {
	return tts.PlayCmd(m.controller, m.source, m.cfg.Settings)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.pager.setSize(msg.Width, msg.Height-statusBarHeight)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.controller.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			return m, tts.TogglePauseCmd(m.controller)
		case key.Matches(msg, m.keys.Stop):
			return m, tts.StopCmd(m.controller)
		case key.Matches(msg, m.keys.Replay):
			m.pager.clear()
			m.status.reset()
			return m, tea.Batch(m.spinner.Tick, m.play())
		}

	case spinner.TickMsg:
		if !m.status.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tts.WordHighlightMsg:
		m.pager.highlight(ttssync.Span{Start: msg.Start, End: msg.End, Kind: ttssync.KindWord})
		return m, nil

	case tts.SentenceHighlightMsg:
		m.pager.highlight(ttssync.Span{Start: msg.Start, End: msg.End, Kind: ttssync.KindSentence})
		return m, nil

	case tts.SessionEndedMsg:
		m.status.update(msg)
		m.pager.clear()
		if m.cfg.QuitOnEnd && msg.Reason == tts.EndCompleted {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tts.TTSErrorMsg:
		log.Warn("Read-along error", "kind", msg.Kind, "message", msg.Message)
		m.status.update(msg)
		return m, nil

	case tts.PlayStartedMsg, tts.SessionStartedMsg, tts.SegmentAdvanceMsg, tts.TTSStateChangedMsg:
		m.status.update(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.pager, cmd = m.pager.update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	return m.pager.View() + "\n" +
		m.status.view(m.width, m.cfg.Title, m.spinner.View(), m.pager.viewport.ScrollPercent())
}
