package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var configShowSource bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long: `Show the effective configuration after merging defaults, config file, and
environment variables. The store secret key is never printed.`,
	Example: `  # Show effective configuration
  datforge config show

  # Show configuration with source file path
  datforge config show --source`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if configShowSource {
			if configPath != "" {
				fmt.Fprintf(w, "Config file: %s\n\n", configPath)
			} else {
				fmt.Fprintln(w, "Config file: (none, using defaults)")
				fmt.Fprintln(w)
			}
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowSource, "source", false, "show config file source")
	configCmd.AddCommand(configShowCmd)
}
