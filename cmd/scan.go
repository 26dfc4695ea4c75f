package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/screen-patrol/internal/navigator"
)

var flagScanParallel int

var scanCmd = &cobra.Command{
	Use:   "scan [name...]",
	Short: "Reconstruct every captured screen",
	Long: `Reconstruct the fields of every stored screen (or only the named ones)
and print the results as JSON.

Screens are processed concurrently, bounded by --parallel; every worker
owns its reconstructor. A screen that fails to reconstruct is reported
with its error and does not stop the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := loadStore()
		if err != nil {
			return err
		}
		opts, err := navigatorOptions()
		if err != nil {
			return err
		}

		parallel := cfg.Parallel
		if cmd.Flags().Changed("parallel") {
			parallel = flagScanParallel
		}
		scanner := navigator.NewScanner(st, parallel, opts)
		scanner.Names = args

		res, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}
		for _, e := range res.Entries {
			if e.Error != "" {
				fmt.Fprintf(os.Stderr, "warning: screen %s: %s\n", e.Name, e.Error)
			}
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	scanCmd.Flags().IntVar(&flagScanParallel, "parallel", 4, "number of screens to reconstruct concurrently")
	rootCmd.AddCommand(scanCmd)
}
