package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/datforge/internal/cli"
	"github.com/koustreak/datforge/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generation over HTTP",
	Long: `Serve generation over HTTP until interrupted.

  POST /v1/generate   schema document (YAML, or JSON with application/json) in,
                      rendering out; ?format=facts|text and ?seed=N
  POST /v1/validate   schema document in, relation summary out
  GET  /healthz       liveness

Documents posted to the server must be self-contained: words_file is refused.`,
	Example: `  datforge serve --addr :8080
  curl --data-binary @schemas/university.yaml localhost:8080/v1/generate?format=text`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg.ServerConfig(serveAddr), runLog)
		if err := srv.ListenAndServe(ctx); err != nil {
			return cli.GeneralError("serving", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}
