package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koustreak/datforge/internal/cli"
	"github.com/koustreak/datforge/internal/config"
	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/dbinstance"
	"github.com/koustreak/datforge/internal/filestore"
	"github.com/koustreak/datforge/internal/params"
)

// Sinks a generated database can be written to besides the rendering.
const (
	sinkNone  = "none"
	sinkDB    = "db"
	sinkStore = "store"
)

var (
	generateSeed   uint64
	generateFormat string
	generateOutput string
	generateSink   string
	generateDSN    string
	generateDriver string
	generateKey    string
)

var generateCmd = &cobra.Command{
	Use:   "generate [schema.yaml]",
	Short: "Generate a database instance",
	Long: `Generate a database instance from a schema document and write it out.

The rendering (facts or text) goes to --output, or stdout. With --sink db the
instance is also loaded into the configured database, referenced tables
first. With --sink store it is published to the configured object store.`,
	Example: `  # Print facts for a schema
  datforge generate schemas/university.yaml

  # Fix the seed and write a text rendering to a file
  datforge generate schemas/university.yaml --seed 42 --format text -o out.txt

  # Load into SQLite
  datforge generate schemas/university.yaml --sink db --driver sqlite --dsn file:test.db

  # Publish to MinIO
  datforge generate schemas/university.yaml --sink store --key runs/university.facts`,
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

		format, err := filestore.ParseFormat(resolveString(generateFormat, cfg.Output.Format))
		if err != nil {
			return cli.ConfigError("output format", err)
		}
		sink := strings.ToLower(generateSink)
		if sink != sinkNone && sink != sinkDB && sink != sinkStore {
			return cli.ConfigError(fmt.Sprintf("unknown sink %q (none, db, store)", generateSink), nil)
		}

		var opts []params.ProcessOption
		switch {
		case cmd.Flags().Changed("seed"):
			opts = append(opts, params.WithSeed(generateSeed))
		case cfg.Seed != nil:
			opts = append(opts, params.WithSeed(*cfg.Seed))
		}

		ctx := cmd.Context()
		db, err := generate(ctx, schemaPath, opts...)
		if err != nil {
			return err
		}

		switch sink {
		case sinkDB:
			if err := loadInto(ctx, db); err != nil {
				return err
			}
		case sinkStore:
			if err := publish(ctx, cmd.OutOrStdout(), schemaPath, db, format); err != nil {
				return err
			}
		}

		output := resolveString(generateOutput, cfg.Output.Path)
		if sink != sinkNone && output == "" {
			return nil
		}
		return render(cmd.OutOrStdout(), output, db, format)
	},
}

func init() {
	f := generateCmd.Flags()
	f.Uint64Var(&generateSeed, "seed", 0, "seed for every random generator (default: the document's)")
	f.StringVar(&generateFormat, "format", "", "rendering: facts or text (default: output.format)")
	f.StringVarP(&generateOutput, "output", "o", "", "write the rendering to this file instead of stdout")
	f.StringVar(&generateSink, "sink", sinkNone, "also write to: none, db or store")
	f.StringVar(&generateDSN, "dsn", "", "database DSN (default: database.dsn)")
	f.StringVar(&generateDriver, "driver", "", "database driver: postgres, mysql or sqlite (default: database.driver)")
	f.StringVar(&generateKey, "key", "", "object key for --sink store (default: store.key or a generated one)")
}

// generate loads the schema document and runs the generation.
func generate(ctx context.Context, schemaPath string, opts ...params.ProcessOption) (*dbinstance.Database, error) {
	schema, err := config.Load(schemaPath)
	if err != nil {
		return nil, cli.GenerationError("loading schema", err)
	}
	proc, err := schema.Process(append([]params.ProcessOption{params.WithLogger(runLog)}, opts...)...)
	if err != nil {
		return nil, cli.GenerationError("preparing generation", err)
	}
	db, err := proc.Run(ctx)
	if err != nil {
		return nil, cli.GenerationError("generating", err)
	}
	runLog.InfoWith("database generated", map[string]any{
		"relations": len(db.Instances()),
		"rows":      db.Size(),
		"rounds":    db.Rounds(),
	})
	return db, nil
}

func loadInto(ctx context.Context, data *dbinstance.Database) error {
	db, err := openDB(ctx, generateDriver, generateDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := database.NewLoader(db, cfg.LoadOptions(), runLog).Load(ctx, data)
	if err != nil {
		return cli.GeneralError(fmt.Sprintf("loading database (%d rows written)", n), err)
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "Loaded %d rows into %d tables.\n", n, len(data.Instances()))
	}
	return nil
}

func publish(ctx context.Context, w io.Writer, schemaPath string, data *dbinstance.Database, format filestore.Format) error {
	store, sc, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	key := resolveString(generateKey, cfg.Store.Key)
	if key == "" {
		base := strings.TrimSuffix(filepath.Base(schemaPath), filepath.Ext(schemaPath))
		key = fmt.Sprintf("%s/%s.%s", base, uuid.NewString(), format)
	}

	info, err := filestore.Publish(ctx, store, sc.Bucket, key, data, format)
	if err != nil {
		return cli.StoreError("publishing", err)
	}
	runLog.InfoWith("database published", map[string]any{"bucket": info.Bucket, "key": info.Key, "size": info.Size})

	if cfg.Store.PresignTTL > 0 && !quiet {
		url, err := store.PresignGetURL(ctx, info.Bucket, info.Key, cfg.Store.PresignTTL)
		if err != nil {
			return cli.StoreError("presigning", err)
		}
		fmt.Fprintln(w, url)
	}
	return nil
}

// render writes the rendering to path, or w when path is empty.
func render(w io.Writer, path string, data *dbinstance.Database, format filestore.Format) error {
	buf, err := filestore.Render(data, format)
	if err != nil {
		return cli.GeneralError("rendering", err)
	}
	if path == "" {
		_, err = buf.WriteTo(w)
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return cli.GeneralError("writing "+path, err)
	}
	return nil
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
