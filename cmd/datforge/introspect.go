package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/datforge/internal/cli"
	"github.com/koustreak/datforge/internal/config"
	"github.com/koustreak/datforge/internal/database"
)

var (
	introspectDSN    string
	introspectDriver string
	introspectCount  int
	introspectSeed   uint64
	introspectOutput string
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Write a schema document from a live database",
	Long: `Read the tables, primary keys and foreign keys of a live database and
write the equivalent schema document. Attributes get the default generator of
their type; edit the document to refine them.`,
	Example: `  # Describe a PostgreSQL schema
  datforge introspect --driver postgres --dsn postgres://localhost/app -o app.yaml

  # Ten rows per table from a SQLite file
  datforge introspect --driver sqlite --dsn file:app.db --count 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx, introspectDriver, introspectDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		info, err := db.InspectSchema(ctx)
		if err != nil {
			return cli.GeneralError("inspecting schema", err)
		}
		relations, err := database.ToRelations(info, introspectSeed, runLog)
		if err != nil {
			return cli.SchemaParseError("converting schema", err)
		}
		runLog.InfoWith("schema introspected", map[string]any{
			"tables":       len(info.Tables),
			"foreign_keys": len(info.ForeignKeys),
		})

		var w io.Writer = cmd.OutOrStdout()
		if introspectOutput != "" {
			f, err := os.Create(introspectOutput)
			if err != nil {
				return cli.GeneralError("creating "+introspectOutput, err)
			}
			defer f.Close()
			w = f
		}
		if err := config.FromRelations(relations, introspectCount, introspectSeed).Encode(w); err != nil {
			return cli.GeneralError("writing schema document", err)
		}
		return nil
	},
}

func init() {
	f := introspectCmd.Flags()
	f.StringVar(&introspectDSN, "dsn", "", "database DSN (default: database.dsn)")
	f.StringVar(&introspectDriver, "driver", "", "database driver: postgres, mysql or sqlite (default: database.driver)")
	f.IntVar(&introspectCount, "count", 10, "rows per table in the written parameters")
	f.Uint64Var(&introspectSeed, "seed", 0, "seed written into the document")
	f.StringVarP(&introspectOutput, "output", "o", "", "write the document to this file instead of stdout")
}
