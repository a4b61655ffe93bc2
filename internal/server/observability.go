package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

// RequestIDHeader carries a caller-chosen request id; one is minted when absent.
const RequestIDHeader = "x-request-id"

// UnaryInterceptor tags each call with a request id, records metrics and logs the outcome.
func UnaryInterceptor(m *metrics.Metrics, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RequestIDHeader); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, id := common.EnsureRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

		m.GrpcStarted()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)
		code := status.Code(err)
		m.GrpcFinished(info.FullMethod, code.String(), elapsed)

		attrs := []any{"method", info.FullMethod, "request_id", id, "code", code.String(), "elapsed_ms", elapsed.Milliseconds()}
		if err != nil {
			logger.Warn("grpc.request.failed", append(attrs, "error", err)...)
		} else {
			logger.Info("grpc.request.ok", attrs...)
		}
		return resp, err
	}
}

// NewGRPCServer builds a server carrying the extraction service, the standard
// health service and reflection.
func NewGRPCServer(svc ExtractionServer, m *metrics.Metrics, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(UnaryInterceptor(m, logger)))
	s := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(s)

	RegisterExtractionServer(s, svc)
	return s, hs
}

// MetricsServer serves /metrics and /healthz over HTTP.
type MetricsServer struct {
	server *http.Server
	logger *slog.Logger
}

func NewMetricsServer(addr string, g prometheus.Gatherer, logger *slog.Logger) *MetricsServer {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the mux for tests.
func (o *MetricsServer) Handler() http.Handler { return o.server.Handler }

// Start blocks until the server stops; a clean Shutdown returns nil.
func (o *MetricsServer) Start() error {
	o.logger.Info("metrics.http.start", "addr", o.server.Addr)
	if err := o.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return common.WrapError(err, "metrics server")
	}
	return nil
}

func (o *MetricsServer) Shutdown(ctx context.Context) error {
	return o.server.Shutdown(ctx)
}
