package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured screens",
	Long: `List the screens stored in the screens file, one per line, with their
dimensions. Each name can be passed to fields, scan and browse.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStore()
		if err != nil {
			return err
		}
		for _, name := range st.Names() {
			snap, err := st.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%dx%d\n", name, snap.Rows, snap.Cols)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
