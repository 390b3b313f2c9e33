package ui

import "github.com/dgnsrekt/readalong/tts"

// Config contains TUI-specific configuration.
type Config struct {
	// Path or description of what is being read, shown in the status bar.
	Title string

	// Engine is the name of the speech engine in use.
	Engine string

	Settings  tts.Settings
	Highlight tts.HighlightConfig

	MaxWidth    uint `env:"READALONG_WIDTH" envDefault:"100"`
	EnableMouse bool `env:"READALONG_MOUSE"`
	QuitOnEnd   bool `env:"READALONG_QUIT_ON_END"`
	NoColor     bool `env:"NO_COLOR"`
}
