package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/fkguard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the guard over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := []server.Option{server.WithQueryTimeout(cfg.Database.QueryTimeout)}
	if s.store != nil {
		opts = append(opts, server.WithReportStore(s.store))
	}

	srv := server.New(s.db, s.guard, log, opts...)
	log.With().Str("addr", addr).Str("driver", cfg.Database.Driver).Logger().Info("serving")
	return srv.ListenAndServe(ctx, addr)
}
