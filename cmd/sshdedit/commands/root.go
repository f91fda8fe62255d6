// Package commands provides the CLI commands for sshdedit.
package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kevinwang15/sshdedit"
	"github.com/kevinwang15/sshdedit/internal/logging"
	"github.com/kevinwang15/sshdedit/internal/target"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// DefaultTarget is the file edited when --target is not given.
const DefaultTarget = "/etc/ssh/sshd_config"

// Global flags
var (
	printLogs  bool
	logLevel   string
	targetPath string
	policyPath string
	noColor    bool
)

// fsys is the filesystem every command reads and writes.
var fsys afero.Fs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "sshdedit",
	Short: "Declarative sshd_config editor",
	Long: `sshdedit converges settings of an OpenSSH server configuration file to a declared
state, keeping comments, blank lines and the layout of every line it does not touch.

Run 'sshdedit set PermitRootLogin no' for a one-off edit, or 'sshdedit apply -f manifest.yaml'
to converge a whole list of settings at once.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd)
		color.NoColor = color.NoColor || noColor
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVarP(&targetPath, "target", "t", DefaultTarget, "sshd_config file to edit")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "YAML key policy to overlay on the built-in table")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored diffs")

	rootCmd.SetVersionTemplate(fmt.Sprintf("sshdedit %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(policyCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(cmd *cobra.Command) {
	if !printLogs {
		logging.Init(logging.Config{Level: logging.Disabled, Output: cmd.ErrOrStderr()})
		return
	}
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(logLevel)
	cfg.Output = cmd.ErrOrStderr()
	logging.Init(cfg)
}

// loadPolicy returns the default table, overlaid with --policy when given.
func loadPolicy() (*sshdedit.Policy, error) {
	if policyPath == "" {
		return sshdedit.DefaultPolicy(), nil
	}
	data, err := afero.ReadFile(fsys, policyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	p, err := sshdedit.LoadPolicy(data)
	if err != nil {
		return nil, err
	}
	logging.Debug().Str("path", policyPath).Msg("loaded policy overlay")
	return p, nil
}

func newStore() (*target.Store, error) {
	p, err := loadPolicy()
	if err != nil {
		return nil, err
	}
	return target.NewStore(fsys, target.WithPolicy(p), target.WithLogger(logging.Component("target"))), nil
}
