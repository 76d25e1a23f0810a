package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/adaptive-timing/internal/rpc"
)

const shutdownTimeout = 10 * time.Second

// #region serve
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve TimingService over gRPC and export /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(configPath, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	logger := rt.logger
	lis, err := net.Listen("tcp", rt.cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", rt.cfg.Server.GRPCAddr, err)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(rpc.LoggingInterceptor(logger.Named("rpc"))))
	rpc.Register(grpcServer, rpc.NewServer(rt.engine))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down grpc")
		grpcServer.GracefulStop()
		return nil
	})

	if addr := rt.cfg.Server.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// #endregion serve
