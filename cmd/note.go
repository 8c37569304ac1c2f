package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/termtrace/internal/entry"
)

var noteCmd = &cobra.Command{
	Use:   "note <message>",
	Short: "Add a note to the current session log",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appendToActive(entry.Note(entry.Now(), strings.Join(args, " "))); err != nil {
			return err
		}
		cmd.Println("Note added.")
		return nil
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Ask the running session to summarize everything buffered so far",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appendToActive(entry.Summarize(entry.Now())); err != nil {
			return err
		}
		cmd.Println("Summary requested.")
		return nil
	},
}

// recordCmd is called by the shell hook after every command.
var recordCmd = &cobra.Command{
	Use:    "record <timestamp> <command> <output> <exit_code>",
	Short:  "Append one shell command to the current session log",
	Args:   cobra.ExactArgs(4),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := strconv.Atoi(strings.TrimSpace(args[3]))
		if err != nil {
			return err
		}
		ts := args[0]
		if ts == "" {
			ts = entry.Now()
		}
		return appendToActive(entry.FromShell(ts, args[1], args[2], code))
	},
}

func init() {
	rootCmd.AddCommand(noteCmd, flushCmd, recordCmd)
}
