package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/kevinwang15/sshdedit"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the settings of the target file",
	Long: `List every (key, condition) address present in the target file with its values.

Examples:
  sshdedit list
  sshdedit list --output yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "text", "Output format (text|yaml|json)")
}

// listEntry is the serialized form of one address.
type listEntry struct {
	Key       string   `yaml:"key" json:"key"`
	Values    []string `yaml:"values" json:"values"`
	Condition string   `yaml:"condition,omitempty" json:"condition,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	entries, err := store.Entries(targetPath)
	if err != nil {
		return err
	}
	return writeEntries(cmd, toListEntries(entries))
}

func writeEntries(cmd *cobra.Command, entries []listEntry) error {
	out := cmd.OutOrStdout()
	switch strings.ToLower(listOutput) {
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "text", "":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MATCH\tKEY\tVALUES")
		for _, e := range entries {
			match := e.Condition
			if match == "" {
				match = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", match, e.Key, strings.Join(e.Values, " "))
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q", listOutput)
	}
}

func toListEntries(entries []sshdedit.Entry) []listEntry {
	out := make([]listEntry, len(entries))
	for i, e := range entries {
		out[i] = listEntry{Key: e.Key, Values: e.Values, Condition: e.Condition.String()}
	}
	return out
}
