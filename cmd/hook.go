package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/termtrace/internal/shell"
)

var hookPrint bool

var hookCmd = &cobra.Command{
	Use:       "hook <zsh|bash>",
	Short:     "Install the shell hook that records commands into the active session",
	Args:      cobra.ExactArgs(1),
	ValidArgs: shell.Supported,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hookPrint {
			src, err := shell.Plugin(args[0])
			if err != nil {
				return err
			}
			cmd.Print(src)
			return nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		_, err = shell.Install(cmd.OutOrStdout(), filepath.Join(home, ".config", "termtrace"), args[0])
		return err
	},
}

func init() {
	hookCmd.Flags().BoolVar(&hookPrint, "print", false, "print the hook instead of installing it")
	rootCmd.AddCommand(hookCmd)
}
