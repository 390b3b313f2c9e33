package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		manPage, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return fmt.Errorf("unable to generate man page: %w", err)
		}

		manPage = manPage.WithSection("Environment", "READALONG_CONFIG_HOME overrides the config directory.\n"+
			"READALONG_DEBUG writes a debug log to the cache directory.\n"+
			"NO_COLOR marks the spoken word with brackets instead of colors.")
		fmt.Println(manPage.Build(roff.NewDocument()))
		return nil
	},
}
