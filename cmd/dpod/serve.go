package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/async"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ingest"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		grpcAddr    string
		metricsAddr string
		watchDir    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dpod.v1.Extraction gRPC service",
		Long: `Serve dpod.v1.Extraction over gRPC with health and reflection, and Prometheus
metrics over HTTP. With --watch, documents dropped into the folder are queued
for processing as they appear.`,
		Example: `  dpod serve
  dpod serve --grpc-addr :50051 --watch ./inbox`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if grpcAddr == "" {
				grpcAddr = a.cfg.Server.GRPCAddr
			}
			if metricsAddr == "" {
				metricsAddr = a.cfg.Server.MetricsAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := a.logger

			store, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			writer := ledger.NewWriter(store, a.cfg.Batch.QueueSize)
			defer writer.Close()

			proc, closer, err := a.processor(ctx, writer, nil)
			if err != nil {
				return err
			}
			defer closer.Close()

			queue := async.NewProcessorQueue(proc, log,
				async.WithWorkers(a.cfg.Batch.Workers),
				async.WithQueueSize(a.cfg.Batch.QueueSize),
				async.WithProcessTimeout(a.cfg.Batch.ProcessTimeout),
				async.WithMetrics(a.metrics),
			)

			if watchDir != "" {
				if err := watch(ctx, a, queue, watchDir); err != nil {
					return err
				}
			}

			grpcServer, hs := server.NewGRPCServer(server.NewExtractionService(proc, queue, log), a.metrics, log)
			lis, err := net.Listen("tcp", grpcAddr)
			if err != nil {
				return err
			}
			metricsServer := server.NewMetricsServer(metricsAddr, a.reg, log)

			errCh := make(chan error, 2)
			go func() {
				log.Info("grpc.serve.start", "addr", lis.Addr().String())
				if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
					errCh <- err
				}
			}()
			go func() {
				if err := metricsServer.Start(); err != nil {
					errCh <- err
				}
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				log.Info("serve.shutdown")
			case serveErr = <-errCh:
				log.Error("serve.failed", "error", serveErr)
			}

			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			grpcServer.GracefulStop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
			queue.Shutdown(shutdownCtx)
			log.Info("serve.stopped")
			return serveErr
		},
	}
	f := cmd.Flags()
	f.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (GRPC_ADDR)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (METRICS_ADDR)")
	f.StringVar(&watchDir, "watch", "", "folder to watch for new documents")
	return cmd
}

// watch feeds every document appearing under dir into the queue until ctx ends.
func watch(ctx context.Context, a *app, queue *async.ProcessorQueue, dir string) error {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		SkipHidden:  true,
	}, a.logger)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return
				}
				job := async.Job{Path: p, RequestID: uuid.NewString()}
				if err := queue.Enqueue(ctx, job); err != nil {
					a.logger.Warn("watch.enqueue.failed", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				a.logger.Warn("watch.error", "error", err)
			}
		}
	}()
	a.logger.Info("watch.start", "dir", dir)
	return nil
}
