package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the target file parses",
	Long: `Parse the target file and report the first syntax error with its line number. Nothing
is written.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	doc, _, err := store.Load(targetPath)
	if err != nil {
		return err
	}
	settings := len(doc.Settings())
	for _, b := range doc.Blocks() {
		settings += len(b.Settings())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d settings, %d Match blocks)\n",
		targetPath, settings, len(doc.Blocks()))
	return nil
}
