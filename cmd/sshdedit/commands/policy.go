package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kevinwang15/sshdedit"
)

var policyCmd = &cobra.Command{
	Use:   "policy [KEY...]",
	Short: "Print the effective key policy",
	Long: `Print the key policy in effect: the built-in table overlaid with --policy. With KEY
arguments only those entries are printed.`,
	RunE: runPolicy,
}

func runPolicy(cmd *cobra.Command, args []string) error {
	p, err := loadPolicy()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return p.Encode(out)
	}

	keys := map[string]sshdedit.KeyPolicy{}
	for _, k := range args {
		kp, ok := p.Lookup(k)
		if !ok {
			return fmt.Errorf("%s: %w", k, sshdedit.ErrUnknownKey)
		}
		keys[k] = kp
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(keys); err != nil {
		return err
	}
	return enc.Close()
}
