package commands

import (
	"github.com/spf13/cobra"

	"github.com/kevinwang15/sshdedit"
)

var (
	setCondition string
	setComment   string
	setAppend    bool
	setDryRun    bool
)

var setCmd = &cobra.Command{
	Use:   "set KEY [VALUE...]",
	Short: "Set one setting",
	Long: `Make KEY carry the given values, in the root of the file or in the Match block selected
by --condition. Without values only the comment is managed.

Examples:
  sshdedit set PermitRootLogin no
  sshdedit set ListenAddress 0.0.0.0 ::
  sshdedit set X11Forwarding no --condition "User anoncvs"
  sshdedit set AcceptEnv LC_PAPER --append`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVarP(&setCondition, "condition", "c", "", "Match criteria, e.g. \"Host *.lan User root\"")
	setCmd.Flags().StringVar(&setComment, "comment", "", "Comment kept above the setting")
	setCmd.Flags().BoolVar(&setAppend, "append", false, "Add missing values instead of replacing")
	setCmd.Flags().BoolVar(&setDryRun, "dry-run", false, "Show the diff without writing")
}

func runSet(cmd *cobra.Command, args []string) error {
	cond, err := sshdedit.ParseCondition(setCondition)
	if err != nil {
		return err
	}
	return applyOne(cmd, sshdedit.Desired{
		Key:       args[0],
		Values:    args[1:],
		Condition: cond,
		Comment:   setComment,
		Append:    setAppend,
	}, setDryRun)
}

// applyOne converges the target file to a single item and reports the outcome.
func applyOne(cmd *cobra.Command, w sshdedit.Desired, dryRun bool) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	res, err := store.Apply(targetPath, []sshdedit.Desired{w}, dryRun)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printDiff(out, res)
	report(out, res, dryRun)
	return nil
}
