package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines"
	"github.com/dgnsrekt/readalong/tts/voices"
)

var (
	voicesLang   string
	voicesSearch string

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List the voices of the speech engine",
		Long:    paragraph(fmt.Sprintf("\n%s the voices the speech engine offers, grouped by language.", keyword("List"))),
		Example: paragraph("readalong voices\nreadalong voices --lang de\nreadalong voices --engine espeak --search whisper"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := tts.LoadConfigFromViper()
			if err != nil {
				return err
			}

			engine, err := engines.Open(cfg)
			if err != nil {
				return fmt.Errorf("unable to open speech engine: %w", err)
			}
			defer engine.Close() //nolint:errcheck

			catalog := voices.NewCatalog(engine.Backend, voices.Config{LoadTimeout: cfg.VoiceLoadTimeout})
			return listVoices(cmd.Context(), catalog, engine.Name, os.Stdout)
		},
	}
)

func init() {
	voicesCmd.Flags().StringVarP(&voicesLang, "lang", "L", "", "only list voices for this language")
	voicesCmd.Flags().StringVarP(&voicesSearch, "search", "s", "", "find the voice best matching a name")
}

func listVoices(ctx context.Context, catalog *voices.Catalog, engineName string, w io.Writer) error {
	list, err := catalog.Load(ctx)
	if err != nil {
		return fmt.Errorf("unable to load voices: %w", err)
	}

	switch {
	case voicesSearch != "":
		v := catalog.Find(voicesSearch)
		if v == nil {
			return fmt.Errorf("no voice matches %q", voicesSearch)
		}
		list = []tts.Voice{*v}
	case voicesLang != "":
		list = catalog.VoicesForLanguage(voicesLang)
	}

	_, _ = fmt.Fprintf(w, "%s %s\n\n", heading(engineName), faint(english.Plural(len(list), "voice", "")))
	writeVoices(w, list)
	return nil
}

// writeVoices prints voices grouped by language name.
func writeVoices(w io.Writer, list []tts.Voice) {
	groups := make(map[string][]tts.Voice)
	var names []string
	for _, v := range list {
		name := voices.LanguageName(v.Language)
		if name == "" {
			name = "Unknown"
		}
		if _, ok := groups[name]; !ok {
			names = append(names, name)
		}
		groups[name] = append(groups[name], v)
	}
	sort.Strings(names)

	for _, name := range names {
		_, _ = fmt.Fprintln(w, heading(name))
		for _, v := range groups[name] {
			line := fmt.Sprintf("  %s  %s (%s)", v.ID, v.Name, v.Language)
			if v.Default {
				line += " " + keyword("default")
			}
			if !v.Local {
				line += " " + faint("network")
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}
}
