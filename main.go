// Package main provides the entry point for the readalong CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines"
	"github.com/dgnsrekt/readalong/tts/voices"
	"github.com/dgnsrekt/readalong/ui"
	"github.com/dgnsrekt/readalong/utils"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	width         uint
	mouse         bool
	fromClipboard bool
	markdown      bool
	includeCode   bool
	noTUI         bool
	quitOnEnd     bool

	rootCmd = &cobra.Command{
		Use:   "readalong [SOURCE]",
		Short: "Read text aloud and follow along on the CLI",
		Long: paragraph(
			fmt.Sprintf("\nRead text aloud and %s, word by word.", keyword("follow along")),
		),
		Example: paragraph("readalong README.md\ncat notes.txt | readalong\nreadalong --clipboard --rate 1.5"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source provides readable text and the name it came from.
type source struct {
	reader io.ReadCloser
	name   string
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: io.NopCloser(os.Stdin)}, nil
	}

	if arg == "" {
		return nil, errors.New("missing source: pass a file, pipe text to stdin or use --clipboard")
	}

	path := utils.ExpandPath(arg)
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}

	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	return &source{reader: r, name: path}, nil
}

func validateOptions(cmd *cobra.Command) error {
	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("unable to read config file: %w", err)
			}
			log.Debug("Using configuration file", "path", configFile)
		}
	}

	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	quitOnEnd = viper.GetBool("quit")

	if fromClipboard && cmd.Flags().NArg() > 0 {
		return errors.New("cannot read from both the clipboard and a source")
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") && width == 0 {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
		}
		if width > 100 {
			width = 100
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// readInput returns the text to read and a name for it.
func readInput(args []string) (string, string, error) {
	if fromClipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", "", fmt.Errorf("unable to read clipboard: %w", err)
		}
		return text, "clipboard", nil
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	} else if yes, err := stdinIsPipe(); err != nil {
		return "", "", err
	} else if yes {
		// if stdin is a pipe then use stdin for input. note that you can
		// also explicitly use a - to read from stdin.
		arg = "-"
	}

	src, err := sourceFromArg(arg)
	if err != nil {
		return "", "", err
	}
	defer src.reader.Close() //nolint:errcheck

	b, err := io.ReadAll(src.reader)
	if err != nil {
		return "", "", fmt.Errorf("unable to read from reader: %w", err)
	}
	return string(b), src.name, nil
}

// speakableText reduces markdown to plain text. Other input is read as is.
func speakableText(content, name string, asMarkdown, withCode bool) string {
	if !asMarkdown && !utils.IsMarkdownFile(name) {
		return content
	}

	content = string(utils.RemoveFrontmatter([]byte(content)))

	var opts []document.Option
	if withCode {
		opts = append(opts, document.WithCode())
	}
	return document.New(opts...).Extract(content)
}

func execute(cmd *cobra.Command, args []string) error {
	content, name, err := readInput(args)
	if err != nil {
		return err
	}

	text := speakableText(content, name, markdown, includeCode)
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to read")
	}

	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	engine, err := engines.Open(cfg)
	if err != nil {
		return fmt.Errorf("unable to open speech engine: %w", err)
	}
	defer engine.Close() //nolint:errcheck

	catalog := voices.NewCatalog(engine.Backend, voices.Config{LoadTimeout: cfg.VoiceLoadTimeout})
	if _, err := catalog.Load(ctx); err != nil {
		log.Warn("Could not load voices", "error", err)
	}
	go func() { _ = catalog.Watch(ctx) }()
	go func() { _ = engine.Watch(ctx) }()

	controller := tts.NewController(engine.Backend, catalog)
	controller.SetConfiguration(cfg.ToControllerConfig())
	defer controller.Close() //nolint:errcheck

	settings := cfg.Settings()
	if settings.VoiceID != "" {
		if v := catalog.Find(settings.VoiceID); v != nil {
			settings.VoiceID = v.ID
		} else {
			log.Warn("No voice matches, using the default", "voice", settings.VoiceID)
			settings.VoiceID = ""
		}
	}

	if noTUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runHeadless(ctx, controller, text, settings, os.Stdout)
	}
	return runTUI(cfg, engine.Name, name, text, settings, controller)
}

func runTUI(cfg tts.Config, engineName, name, text string, settings tts.Settings, controller *tts.Controller) error {
	// Read environment to get debugging stuff
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	if name != "" {
		uiCfg.Title = filepath.Base(name)
	}
	uiCfg.Engine = engineName
	uiCfg.Settings = settings
	uiCfg.Highlight = cfg.Highlight
	if width > 0 {
		uiCfg.MaxWidth = width
	}
	uiCfg.EnableMouse = uiCfg.EnableMouse || mouse
	uiCfg.QuitOnEnd = uiCfg.QuitOnEnd || quitOnEnd

	if os.Getenv("READALONG_DEBUG") == "" {
		// Stderr shares the terminal with the viewer.
		log.SetOutput(io.Discard)
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(uiCfg, text, controller).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("engine", "e", tts.EngineAuto, fmt.Sprintf("speech engine (%s)", strings.Join(tts.Engines, ", ")))
	rootCmd.Flags().StringP("voice", "v", "", "voice ID or name")
	rootCmd.Flags().StringP("lang", "L", "", "language used to pick a voice (BCP 47)")
	rootCmd.Flags().Float64P("rate", "r", 1.0, "speech rate, 1.0 is normal")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to use the terminal)")
	rootCmd.Flags().BoolVarP(&fromClipboard, "clipboard", "c", false, "read the clipboard")
	rootCmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "treat the source as markdown")
	rootCmd.Flags().BoolVar(&includeCode, "code", false, "read code blocks too (markdown only)")
	rootCmd.Flags().BoolVar(&noTUI, "no-tui", false, "print sentences as they are spoken instead of opening the viewer")
	rootCmd.Flags().BoolVarP(&quitOnEnd, "quit", "q", false, "quit when reading finishes")
	rootCmd.Flags().BoolVar(&mouse, "mouse", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("tts.engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("tts.voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("tts.language", rootCmd.Flags().Lookup("lang"))
	_ = viper.BindPFlag("tts.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("quit", rootCmd.Flags().Lookup("quit"))

	viper.SetDefault("width", 0)
	tts.SetDefaults()

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, cacheCmd)
}

func configDirs() ([]string, error) {
	scope := gap.NewScope(gap.User, "readalong")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readalong")}, dirs...)
	}

	if c := os.Getenv("READALONG_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	return dirs, nil
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := configDirs()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readalong")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readalong")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
	// The generated file only holds the defaults.
	configFile = ""
}
