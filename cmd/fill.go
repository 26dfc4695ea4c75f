package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/screen-patrol/internal/session"
)

var flagFillEnter bool

var fillCmd = &cobra.Command{
	Use:   "fill <label>=<value>...",
	Short: "Fill fields of the live screen by label",
	Long: `Type values into the editable fields of the live screen, addressing each
field by its label, e.g.

  screen-patrol fill User=ibmuser Password=secret --enter

Every value is checked first: the label must exist, the field must be
editable and the value must fit. Nothing is typed when a check fails.
With --enter the screen is sent to the host afterwards. The labels of the
resulting screen are printed as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		values, err := parseAssignments(args)
		if err != nil {
			return err
		}

		nav, err := openNavigator(ctx)
		if err != nil {
			return err
		}
		defer nav.Session().Close()

		if _, err := nav.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to read screen: %w", err)
		}
		m, err := nav.Fill(ctx, values)
		if err != nil {
			return err
		}
		if flagFillEnter {
			if m, err = nav.Send(ctx, session.CmdEnter); err != nil {
				return err
			}
		}
		return writeJSON(cmd.OutOrStdout(), m.Labels())
	},
}

// parseAssignments parses label=value arguments. The value may be empty
// and may contain "=".
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		label, value, ok := strings.Cut(arg, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, fmt.Errorf("invalid assignment %q (want label=value)", arg)
		}
		if _, dup := values[label]; dup {
			return nil, fmt.Errorf("label %q given twice", label)
		}
		values[label] = value
	}
	return values, nil
}

func init() {
	fillCmd.Flags().BoolVar(&flagFillEnter, "enter", false, "press Enter after filling")
	rootCmd.AddCommand(fillCmd)
}
