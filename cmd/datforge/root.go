package main

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/datforge/internal/cli"
	"github.com/koustreak/datforge/internal/logger"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string
	runLog     = logger.Nop()

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "datforge",
	Short: "Relational test data synthesizer",
	Long: `datforge - relational test data synthesizer

datforge generates database instances from a schema document. Rows are
forged from per-attribute generators and every foreign key is satisfied,
unless a degeneration step is asked to break some on purpose.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		runLog = logger.New(cfg.LoggerConfig(verbose, quiet))
		logger.SetGlobal(runLog)
		if configPath != "" {
			runLog.Debugf("using config file %s", configPath)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

const (
	groupData    = "data"
	groupDB      = "database"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover datforge.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupData, Title: "Data:"},
		&cobra.Group{ID: groupDB, Title: "Database:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	generateCmd.GroupID = groupData
	validateCmd.GroupID = groupData
	serveCmd.GroupID = groupData
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)

	introspectCmd.GroupID = groupDB
	rootCmd.AddCommand(introspectCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}
