package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/eggexpr/pkg/api"
	grpcapi "github.com/lemonberrylabs/eggexpr/pkg/api/grpc"
	"github.com/lemonberrylabs/eggexpr/pkg/store"
	"github.com/lemonberrylabs/eggexpr/web"
)

func newServeCmd() *cobra.Command {
	var (
		port     int
		grpcPort int
		host     string
		db       string
		flags    engineFlags
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST, gRPC and web playground servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &globals.cfg
			if port != 0 {
				cfg.Server.Port = port
			}
			if grpcPort != 0 {
				cfg.Server.GRPCPort = grpcPort
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if db != "" {
				cfg.Database = db
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default 8787, env EGGEXPR_PORT)")
	cmd.Flags().IntVar(&grpcPort, "grpc-port", 0, "gRPC server port (default 8788, env EGGEXPR_GRPC_PORT)")
	cmd.Flags().StringVar(&host, "host", "", "Bind address (default 0.0.0.0, env EGGEXPR_HOST)")
	cmd.Flags().StringVar(&db, "db", "", "SQLite database for stored scopes; empty keeps them in memory (env EGGEXPR_DB)")
	return cmd
}

func serve(flags engineFlags) error {
	cfg := globals.cfg
	logger := globals.logger

	eng, _, err := newEngine(flags)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	server := api.New(eng, st, logger)

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("web UI disabled due to template error", "error", r)
			}
		}()
		web.New(eng, st).Register(server.App())
	}()

	grpcServer := grpcapi.New(eng, st, logger)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr())
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			logger.Error("gRPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	backend := "memory"
	if cfg.Database != "" && cfg.Database != ":memory:" {
		backend = cfg.Database
	}
	logger.Info("eggexpr listening",
		"addr", cfg.Addr(),
		"mode", eng.Mode().String(),
		"store", backend,
	)
	return server.Listen(cfg.Addr())
}
