package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/datforge/internal/cli"
	"github.com/koustreak/datforge/internal/config"
	"github.com/koustreak/datforge/internal/export"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema.yaml]",
	Short: "Validate a schema document",
	Long: `Check that a schema document declares consistent relations, keys and
foreign keys, and that its parameters resolve. Prints each relation with the
parameters it would be generated with.`,
	Example: `  # Validate a schema document
  datforge validate schemas/university.yaml

  # Validate the schema named in datforge.yaml
  datforge validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arg string
		if len(args) == 1 {
			arg = args[0]
		}
		schemaPath := cfg.ResolvedSchema(arg)
		if schemaPath == "" {
			return cli.SchemaParseError("no schema document given (argument or schema in config)", nil)
		}

		schema, err := config.Load(schemaPath)
		if err != nil {
			return cli.SchemaParseError("parsing schema", err)
		}
		proc, err := schema.Process()
		if err != nil {
			return cli.SchemaParseError("resolving parameters", err)
		}
		if quiet {
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Schema is valid. Found %d relations:\n", len(schema.Relations))
		tf := export.NewTextFormatter(w)
		for _, r := range schema.Relations {
			fmt.Fprintln(w)
			if err := tf.FormatRelation(r); err != nil {
				return err
			}
			if p, ok := proc.Parameters(r.Name()); ok {
				fmt.Fprintf(w, "  parameters: %s\n", p)
			}
		}
		return nil
	},
}
