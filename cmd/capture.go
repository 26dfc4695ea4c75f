package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/screen-patrol/internal/logging"
	"github.com/timvw/screen-patrol/internal/store"
)

var (
	flagCaptureForce bool
	flagCaptureSend  []string
)

var captureCmd = &cobra.Command{
	Use:   "capture <name>",
	Short: "Capture the current screen into the screens file",
	Long: `Snapshot the live session and store it under <name> in the screens file.

The snapshot holds the rendered rows, the raw buffer with its field
markers and the emulator status line. Use --send to drive the session to
the wanted screen first; each action runs in order and waits for the
host to unlock the keyboard.

Captured screens can be replayed with --session replay.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]
		if err := store.ValidateName(name); err != nil {
			return err
		}

		st, err := loadStore()
		if err != nil {
			return err
		}
		if st.Has(name) && !flagCaptureForce {
			ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
				fmt.Sprintf("screen %q already exists in %s. Overwrite?", name, st.Path()))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("screen %q exists (use --force to overwrite)", name)
			}
		}

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		for _, action := range flagCaptureSend {
			err := sess.Exec(ctx, action)
			logging.LogCommand(logging.GetLogger(), sess.Name(), action, err)
			if err != nil {
				return fmt.Errorf("send %s: %w", action, err)
			}
		}

		snap, err := sess.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to capture screen: %w", err)
		}
		if err := st.Put(name, snap); err != nil {
			return err
		}
		if err := st.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "captured %s (%dx%d) to %s\n", name, snap.Rows, snap.Cols, st.Path())
		return nil
	},
}

// confirm asks a yes/no question on w and reads the answer from r.
func confirm(r io.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprintf(w, "%s [y/N] ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func init() {
	captureCmd.Flags().BoolVar(&flagCaptureForce, "force", false, "overwrite an existing screen without asking")
	captureCmd.Flags().StringArrayVar(&flagCaptureSend, "send", nil, `action to run before the snapshot, e.g. "Enter" or "PF(3)" (repeatable)`)
	rootCmd.AddCommand(captureCmd)
}
