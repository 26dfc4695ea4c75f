package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/timvw/screen-patrol/internal/navigator"
)

var flagTheme string

var browseCmd = &cobra.Command{
	Use:   "browse [name...]",
	Short: "Interactive TUI to inspect and fill screens",
	Long: `Launch an interactive terminal UI showing the current screen with its
fields highlighted: editable fields, hidden (password) fields and the
selected field each get their own color. Below the screen every field is
listed with its position, length, label and value.

Select an editable field and press Enter to type a new value; press s to
send the screen to the host and r to refresh.

Without names the live session is browsed; with names the stored screens
are replayed in order, advancing on every Enter or PF key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel() // cancels in-flight refreshes when the TUI exits

		nav, err := openNavigator(ctx, args...)
		if err != nil {
			return err
		}
		defer nav.Session().Close()

		theme := cfg.Theme
		if cmd.Flags().Changed("theme") {
			theme = flagTheme
		}
		b := &navigator.Browser{
			Navigator: nav,
			Theme:     navigator.ThemeByName(theme),
		}
		return b.Run(ctx)
	},
}

func init() {
	browseCmd.Flags().StringVar(&flagTheme, "theme", "dark", "Color theme: dark, light")
	rootCmd.AddCommand(browseCmd)
}
