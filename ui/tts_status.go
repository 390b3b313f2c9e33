package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/readalong/tts"
)

const (
	ellipsis      = "…"
	maxVoiceWidth = 28
)

var (
	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#5A56E0")).
			Bold(true).
			Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFDF5")).
				Background(lipgloss.Color("#FF5F87")).
				Render
)

// statusBar tracks what the read-along engine reports for display.
type statusBar struct {
	state   tts.StateType
	loading bool
	segment int
	total   int
	voice   string
	ended   bool
	reason  tts.EndReason
	err     string
}

func newStatusBar() statusBar {
	return statusBar{loading: true}
}

// reset prepares for a new session.
func (s *statusBar) reset() {
	*s = statusBar{loading: true, voice: s.voice}
}

func (s *statusBar) update(msg tea.Msg) {
	switch msg := msg.(type) {
	case tts.PlayStartedMsg:
		s.total = len(msg.Handle.Segments)
		if v := msg.Handle.Voice; v != nil {
			s.voice = voiceLabel(*v)
		}

	case tts.SessionStartedMsg:
		s.loading = false
		s.ended = false
		s.err = ""

	case tts.SegmentAdvanceMsg:
		s.loading = false
		s.segment = msg.Index
		s.total = msg.Total

	case tts.TTSStateChangedMsg:
		s.state = msg.State

	case tts.SessionEndedMsg:
		s.loading = false
		s.ended = true
		s.reason = msg.Reason

	case tts.TTSErrorMsg:
		s.loading = false
		s.err = msg.Message
	}
}

// note describes the session in a few words.
func (s statusBar) note(spinner string) string {
	if s.err != "" {
		return "Error: " + s.err
	}
	if s.loading {
		return spinner + " Preparing speech" + ellipsis
	}
	if s.ended {
		switch s.reason {
		case tts.EndCompleted:
			return "■ Finished · r to read again"
		case tts.EndStopped:
			return "■ Stopped · r to read again"
		default:
			return "✗ Failed"
		}
	}

	var b strings.Builder
	b.WriteString(stateIcon(s.state))
	if s.total > 0 {
		fmt.Fprintf(&b, " %d/%d", s.segment+1, s.total)
	}
	if s.voice != "" {
		b.WriteString(" · " + s.voice)
	}
	return b.String()
}

func (s statusBar) view(width int, title, spinner string, scroll float64) string {
	logo := logoStyle(" readalong ")
	percent := statusBarNoteStyle(fmt.Sprintf(" %3.f%% ", min(max(scroll, 0), 1)*100))
	help := statusBarHelpStyle(" space pause · s stop · q quit ")

	text := s.note(spinner)
	if title != "" {
		text = title + " · " + text
	}

	avail := max(0, width-
		ansi.PrintableRuneWidth(logo)-
		ansi.PrintableRuneWidth(percent)-
		ansi.PrintableRuneWidth(help))
	note := truncate.StringWithTail(" "+text+" ", uint(avail), ellipsis) //nolint:gosec

	style := statusBarNoteStyle
	if s.err != "" {
		style = statusBarErrorStyle
	}
	padding := strings.Repeat(" ", max(0, avail-ansi.PrintableRuneWidth(note)))

	return logo + style(note+padding) + percent + help
}

func stateIcon(state tts.StateType) string {
	switch state {
	case tts.StateSpeaking:
		return "▶"
	case tts.StatePaused:
		return "⏸"
	case tts.StateError:
		return "✗"
	case tts.StateCompleted, tts.StateStopped:
		return "■"
	default:
		return "○"
	}
}

// voiceLabel names a voice, cut to fit the status bar.
func voiceLabel(v tts.Voice) string {
	name := v.Name
	if name == "" {
		name = v.ID
	}
	if v.Language != "" {
		name += " (" + v.Language + ")"
	}
	return runewidth.Truncate(name, maxVoiceWidth, ellipsis)
}
