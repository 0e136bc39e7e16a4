// Command catenagw is the ST2138/Catena gateway: it hosts a populated-slot
// device registry and exposes it over Transport A (gRPC) and Transport B
// (HTTP + SSE) simultaneously.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/stepherg/catenago/internal/config"
	"github.com/stepherg/catenago/internal/connect"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/metrics"
	"github.com/stepherg/catenago/internal/obslog"
	"github.com/stepherg/catenago/internal/rpc"
	"github.com/stepherg/catenago/internal/subscription"
	"github.com/stepherg/catenago/internal/transport/grpcsvc"
	"github.com/stepherg/catenago/internal/transport/httpsse"
	"github.com/stepherg/catenago/pkg/wire"
)

func main() {
	fs := pflag.NewFlagSet("catenagw", pflag.ExitOnError)
	config.RegisterFlags(fs)
	configPath := fs.String("config", "", "path to an optional config file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	cfg, err := config.Load(fs, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := obslog.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	m := metrics.New(reg)

	slots := device.NewSlotRegistry()
	subs := subscription.NewRegistry()
	seedDemoDevice(slots, subs, cfg.MaxSubscriptionsPerDevice)

	queue := connect.NewConnectionQueue(cfg.MaxConnections)
	svc := rpc.NewService(slots, subs, queue, cfg.AuthzEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pollActiveSessions(ctx, m, queue)

	grpcServer := grpcsvc.NewGRPCServer(grpcsvc.NewServer(svc, logger))
	grpcLis, err := net.Listen("tcp", cfg.GRPCListen)
	if err != nil {
		logger.Fatal("grpc listen failed", zap.Error(err))
	}
	go func() {
		logger.Info("grpc transport listening", zap.String("addr", cfg.GRPCListen))
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("grpc server stopped", zap.Error(err))
		}
	}()

	httpMux := http.NewServeMux()
	httpMux.Handle("/", httpsse.NewRouter(httpsse.NewServer(svc, logger)))
	httpMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:         cfg.HTTPListen,
		Handler:      httpMux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		logger.Info("http/sse transport listening", zap.String("addr", cfg.HTTPListen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

// pollActiveSessions mirrors the ConnectionQueue's length into the active
// Connect sessions gauge until ctx is cancelled.
func pollActiveSessions(ctx context.Context, m *metrics.Registry, queue *connect.ConnectionQueue) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ActiveSessions.Set(float64(queue.Len()))
		}
	}
}

// seedDemoDevice populates slot 0 with a small reference device so the
// gateway is immediately exercisable without an external device driver.
func seedDemoDevice(slots *device.SlotRegistry, subs *subscription.Registry, maxSubs uint32) {
	dev := device.New("operator", maxSubs, true)
	dev.AddParam("gain", device.NewScalar("/gain", device.NewDescriptor("operator", false, true, false), wire.Int32Val(0)))
	dev.AddParam("name", device.NewScalar("/name", device.NewDescriptor("operator", false, false, false), wire.StringVal("catenagw-demo")))

	slots.Put(0, dev)
	subs.Put(0, subscription.New(dev.MaxSubscriptions()))
}
