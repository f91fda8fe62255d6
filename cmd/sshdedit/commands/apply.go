package commands

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kevinwang15/sshdedit/internal/logging"
	"github.com/kevinwang15/sshdedit/internal/manifest"
)

var (
	applyFile    string
	applyOverlay []string
	applyDryRun  bool
	applyDiff    bool
)

var applyCmd = &cobra.Command{
	Use:   "apply -f manifest.yaml",
	Short: "Converge files to a manifest",
	Long: `Apply every resource of a manifest. Resources are grouped by target file and each file
is converged as one batch: either every resource applies or the file is left untouched.

Examples:
  sshdedit apply -f hardening.yaml
  sshdedit apply -f hardening.yaml --overlay staging.patch.yaml --dry-run`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "Manifest to apply")
	applyCmd.Flags().StringArrayVar(&applyOverlay, "overlay", nil, "JSON patch (JSON or YAML) applied to the manifest first; repeatable")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show what would change without writing")
	applyCmd.Flags().BoolVar(&applyDiff, "diff", false, "Print a diff of every change")
	_ = applyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command, args []string) error {
	data, err := afero.ReadFile(fsys, applyFile)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := manifest.Load(data)
	if err != nil {
		return err
	}
	for _, path := range applyOverlay {
		patch, err := afero.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read overlay: %w", err)
		}
		if err := m.ApplyOverlay(patch); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logging.Debug().Str("overlay", path).Msg("applied overlay")
	}

	// An explicit --target wins over the manifest's own.
	if cmd.Flags().Changed("target") {
		m.Target = targetPath
	}
	batches, err := m.Batches(targetPath)
	if err != nil {
		return err
	}

	store, err := newStore()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, b := range batches {
		res, err := store.Apply(b.Target, b.Items, applyDryRun)
		if err != nil {
			return err
		}
		if applyDiff || applyDryRun {
			printDiff(out, res)
		}
		report(out, res, applyDryRun)
	}
	return nil
}
