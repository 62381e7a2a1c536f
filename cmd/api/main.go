package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/app"
	"github.com/vogiaan1904/quickseat-booking/internal/auth"
	grpcSvc "github.com/vogiaan1904/quickseat-booking/internal/delivery/grpc"
	httpSvc "github.com/vogiaan1904/quickseat-booking/internal/delivery/http"
	"github.com/vogiaan1904/quickseat-booking/internal/infra/redis"
	"github.com/vogiaan1904/quickseat-booking/internal/service"
	pkgGrpc "github.com/vogiaan1904/quickseat-booking/pkg/grpc"
	pkgLog "github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
		Service:  "quickseat-api",
	})
	defer func() { _ = l.Sync() }()

	redisCli, err := redis.Connect(ctx, cfg.Redis, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
	}
	defer redis.Disconnect(context.Background(), redisCli, l)

	stores, err := app.OpenStores(ctx, cfg, redisCli, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to open stores: %v", err)
	}
	defer stores.Close()

	pub, closePub, err := app.NewPublisher(ctx, cfg, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize event publisher: %v", err)
	}
	defer closePub()

	clock := service.SystemClock()
	gateway := app.NewGateway(cfg, l)
	verifier := auth.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Initialize services
	scheduler := service.NewJobScheduler(stores.Jobs, clock, l)
	reconciler := service.NewReconciler(stores.Shows, stores.Bookings, gateway, scheduler, pub, clock, l, cfg.Booking)
	bookingSvc := service.NewBookingService(stores.Shows, stores.Bookings, gateway, scheduler, reconciler, clock, l, cfg.Booking, cfg.Payment)
	paymentSvc := service.NewPaymentService(stores.Shows, stores.Bookings, gateway, pub, clock, l, cfg.Payment)
	showSvc, err := service.NewShowService(stores.Shows, stores.Bookings, pub, clock, l, cfg.Booking)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize show service: %v", err)
	}

	// gRPC server
	lnr, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRpcPort))
	if err != nil {
		l.Fatalf(ctx, "gRPC server failed to listen: %v", err)
	}
	gRpcSrv, healthSrv := pkgGrpc.NewServer(l)
	grpcSvc.RegisterBookingServiceServer(gRpcSrv, grpcSvc.NewGrpcService(bookingSvc, paymentSvc, verifier, l))
	healthSrv.SetServingStatus(grpcSvc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// HTTP server
	h := httpSvc.NewHandler(bookingSvc, paymentSvc, showSvc, l)
	mw := httpSvc.NewMiddleware(verifier, cfg.Booking.ClientOrigin, l)
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpSvc.NewRouter(h, mw, l),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Infof(ctx, "gRPC server is listening on port: %d", cfg.Server.GRpcPort)
		return gRpcSrv.Serve(lnr)
	})

	g.Go(func() error {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		l.Info(ctx, "Server shutting down...")

		healthSrv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			l.Errorf(ctx, "Failed to shut down HTTP server: %v", err)
		}
		gRpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Errorf(ctx, "Server stopped with error: %v", err)
	}

	l.Info(ctx, "Server exited")
}
