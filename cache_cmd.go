package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines"
)

var (
	clearCache bool
	pruneCache bool

	cacheCmd = &cobra.Command{
		Use:     "cache",
		Short:   "Show or clear the synthesized audio cache",
		Long:    paragraph(fmt.Sprintf("\n%s the cache of audio synthesized by piper.", keyword("Inspect"))),
		Example: paragraph("readalong cache\nreadalong cache --prune\nreadalong cache --clear"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := tts.LoadConfigFromViper()
			if err != nil {
				return err
			}

			cacheCfg, err := engines.CacheConfig(cfg.Cache)
			if err != nil {
				return err
			}
			// No background pruning for a one-off command.
			cacheCfg.PruneInterval = 0

			store, err := cache.Open(cacheCfg)
			if err != nil {
				return fmt.Errorf("unable to open cache: %w", err)
			}
			defer store.Close() //nolint:errcheck

			return runCache(store, clearCache, pruneCache, os.Stdout)
		},
	}
)

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "remove every cached utterance")
	cacheCmd.Flags().BoolVar(&pruneCache, "prune", false, "remove expired utterances")
}

func runCache(store *cache.Store, clearAll, prune bool, w io.Writer) error {
	switch {
	case clearAll:
		before := store.Stats().Disk
		if err := store.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Removed %s (%s)\n", humanize.Comma(int64(before.Items)), humanize.Bytes(uint64(before.Size))) //nolint:gosec
		return nil
	case prune:
		_, disk := store.Prune()
		_, _ = fmt.Fprintf(w, "Pruned %s expired\n", humanize.Comma(int64(disk)))
		return nil
	}

	s := store.Stats()
	_, _ = fmt.Fprintln(w, heading("Cache"), faint(s.Dir))
	_, _ = fmt.Fprintf(w, "  disk    %s items, %s of %s\n",
		humanize.Comma(int64(s.Disk.Items)),
		humanize.Bytes(uint64(s.Disk.Size)),     //nolint:gosec
		humanize.Bytes(uint64(s.Disk.Capacity))) //nolint:gosec
	return nil
}
