package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/screen-patrol/internal/field"
)

var (
	flagFieldsLabels   bool
	flagFieldsEditable bool
)

var fieldsCmd = &cobra.Command{
	Use:   "fields [name]",
	Short: "Print the reconstructed fields of a screen",
	Long: `Reconstruct a screen and print its fields as JSON.

Without a name the live session is captured; with a name the stored
screen is used. --labels prints only the label -> value map of labeled
fields, --editable only the fields that accept input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		nav, err := openNavigator(ctx, args...)
		if err != nil {
			return err
		}
		defer nav.Session().Close()

		m, err := nav.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("failed to read screen: %w", err)
		}

		switch {
		case flagFieldsLabels:
			return writeJSON(cmd.OutOrStdout(), m.Labels())
		case flagFieldsEditable:
			editable := m.Editable()
			if editable == nil {
				editable = []*field.Field{}
			}
			return writeJSON(cmd.OutOrStdout(), editable)
		}
		return writeJSON(cmd.OutOrStdout(), m)
	},
}

var readCmd = &cobra.Command{
	Use:   "read <label>...",
	Short: "Print the value of labeled fields on the live screen",
	Long: `Capture the live screen and print the value of each labeled field, one
"label<TAB>value" line per argument. Labels match case-insensitively.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		nav, err := openNavigator(ctx)
		if err != nil {
			return err
		}
		defer nav.Session().Close()

		if _, err := nav.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to read screen: %w", err)
		}
		for _, label := range args {
			value, err := nav.Read(label)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", label, value)
		}
		return nil
	},
}

func init() {
	fieldsCmd.Flags().BoolVar(&flagFieldsLabels, "labels", false, "print only the label -> value map")
	fieldsCmd.Flags().BoolVar(&flagFieldsEditable, "editable", false, "print only editable fields")
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(readCmd)
}
