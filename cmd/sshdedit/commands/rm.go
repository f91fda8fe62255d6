package commands

import (
	"github.com/spf13/cobra"

	"github.com/kevinwang15/sshdedit"
)

var (
	rmCondition string
	rmDryRun    bool
)

var rmCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Remove a setting",
	Long: `Remove every line of KEY, with its managed comment, from the root of the file or from
the Match blocks selected by --condition. Emptied Match blocks are kept.

Examples:
  sshdedit rm ListenAddress
  sshdedit rm ForceCommand --condition "User anoncvs"`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().StringVarP(&rmCondition, "condition", "c", "", "Match criteria, e.g. \"User anoncvs\"")
	rmCmd.Flags().BoolVar(&rmDryRun, "dry-run", false, "Show the diff without writing")
}

func runRm(cmd *cobra.Command, args []string) error {
	cond, err := sshdedit.ParseCondition(rmCondition)
	if err != nil {
		return err
	}
	return applyOne(cmd, sshdedit.Desired{Key: args[0], Condition: cond, Absent: true}, rmDryRun)
}
