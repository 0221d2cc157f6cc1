package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/unitcalc/pkg/api"
	grpcapi "github.com/lemonberrylabs/unitcalc/pkg/api/grpc"
	"github.com/lemonberrylabs/unitcalc/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, web UI and optional gRPC service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.String("host", "localhost", "bind address (env UNITCALC_SERVER_HOST)")
	f.Int("port", 8787, "HTTP server port (env UNITCALC_SERVER_PORT)")
	f.Int("grpc-port", 0, "gRPC server port, 0 to disable (env UNITCALC_SERVER_GRPC_PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	logger := a.logger

	server := api.New(a.session, logger)
	web.New(a.session).Register(server.App())

	var grpcServer *grpcapi.Server
	if addr := a.cfg.GRPCAddr(); addr != "" {
		grpcServer = grpcapi.New(a.session, logger)
		go func() {
			logger.Info("gRPC server listening", "addr", addr)
			if err := grpcServer.Serve(addr); err != nil {
				logger.Fatal("gRPC server error", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := server.Shutdown(); err != nil {
			logger.Error("Error during shutdown", "err", err)
		}
	}()

	logger.Info("unitcalc listening", "addr", a.cfg.Addr(),
		"units", len(a.session.Units()), "prefixes", len(a.session.Prefixes()))
	return server.Listen(a.cfg.Addr())
}
